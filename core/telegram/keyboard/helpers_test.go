package keyboard

import "testing"

func TestInlineButtonsMixesURLAndCallback(t *testing.T) {
	markup := InlineButtons([]InlineBtn{
		{Text: "Sign in", URL: "https://accounts.example.com/auth"},
		{Text: "Waiting", Unique: "awaiting_data"},
	})
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	link := markup.InlineKeyboard[0][0]
	if link.URL != "https://accounts.example.com/auth" || link.Data != "" {
		t.Fatalf("link button = %+v", link)
	}
	cb := markup.InlineKeyboard[1][0]
	if cb.URL != "" || cb.Unique != "awaiting_data" {
		t.Fatalf("callback button = %+v", cb)
	}
}

func TestInlineButtonsNPerRow(t *testing.T) {
	buttons := []InlineBtn{{Text: "a", Unique: "a"}, {Text: "b", Unique: "b"}, {Text: "c", Unique: "c"}}
	markup := InlineButtonsNPerRow(buttons, 2)
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected layout: %+v", markup.InlineKeyboard)
	}
}
