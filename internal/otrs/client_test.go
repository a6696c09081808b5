package otrs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ticketJSON = `{"Ticket":[{"TicketID":"42","Title":"Printer on fire","State":"open",
	"DynamicField":[{"Name":"Plantime","Value":"90"},{"Name":"Other","Value":null}],
	"Article":[
		{"Subject":"(F:0+30) checked toner","ArticleType":"note-internal","Created":"2024-03-01 10:00:00","FromRealname":"Agent Smith"},
		{"Subject":"Customer mail","ArticleType":"email-external","Created":"2024-03-01 09:00:00","FromRealname":"Bob"}
	]}]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	base := "/otrs/nph-genericinterface.pl/Webservice/GenericTicketConnectorREST/"
	mux.HandleFunc(base+"Session", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.Method != http.MethodPost || in["UserLogin"] != "agent" || in["Password"] != "pw" {
			_, _ = w.Write([]byte(`{"Error":{"ErrorCode":"SessionCreate.AuthFail","ErrorMessage":"Authorization failing!"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"SessionID":"sess-1"}`))
	})
	mux.HandleFunc(base+"Ticket/42", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("SessionID") != "sess-1" || q.Get("AllArticles") != "1" || q.Get("DynamicFields") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(ticketJSON))
	})
	mux.HandleFunc(base+"Ticket/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error":{"ErrorCode":"TicketGet.AccessDenied","ErrorMessage":"no permission"}}`))
	})
	return httptest.NewServer(mux)
}

func TestSessionAndTicket(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, err := New(srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	sess, err := c.CreateSession(ctx, "agent", "pw")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	ticket, err := sess.Ticket(ctx, 42)
	if err != nil {
		t.Fatalf("Ticket() error = %v", err)
	}
	if ticket.Title != "Printer on fire" || ticket.State != "open" || len(ticket.Articles) != 2 {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if v, ok := ticket.DynamicField("Plantime"); !ok || v != "90" {
		t.Fatalf("Plantime = %q, %v", v, ok)
	}
	if _, ok := ticket.DynamicField("Other"); ok {
		t.Fatal("null dynamic field should be absent")
	}
	if !ticket.Articles[0].InternalNote() || ticket.Articles[1].InternalNote() {
		t.Fatalf("internal note detection failed: %+v", ticket.Articles)
	}

	_, err = sess.Ticket(ctx, 7)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code() != "TicketGet.AccessDenied" {
		t.Fatalf("Ticket(7) error = %v", err)
	}

	var se *StatusError
	if _, err := sess.Ticket(ctx, 8); !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Ticket(8) error = %v", err)
	}
}

func TestCreateSessionAuthFail(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, _ := New(srv.URL+"/otrs/nph-genericinterface.pl", DefaultWebservice, srv.Client())
	_, err := c.CreateSession(context.Background(), "agent", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != "SessionCreate.AuthFail" {
		t.Fatalf("CreateSession() error = %v", err)
	}
}

func TestArticleOTRS6Fields(t *testing.T) {
	var a Article
	if err := json.Unmarshal([]byte(`{"Subject":"(x)","CommunicationChannel":"Internal","IsVisibleForCustomer":"0","CreateTime":"2024-01-01"}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.InternalNote() || a.CreatedAt() != "2024-01-01" {
		t.Fatalf("unexpected article: %+v", a)
	}
	if err := json.Unmarshal([]byte(`{"CommunicationChannel":"Internal","IsVisibleForCustomer":1}`), &a); err != nil {
		t.Fatalf("unmarshal numeric flag: %v", err)
	}
	if a.InternalNote() {
		t.Fatal("customer-visible article must not be an internal note")
	}
}
