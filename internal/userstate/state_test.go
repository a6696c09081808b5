package userstate

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	coredatabase "github.com/m3rciful/workbot/core/database"
	"github.com/m3rciful/workbot/core/telegram/state"
)

func TestConsumePopsHeadInOrder(t *testing.T) {
	st := &UserState{}
	st.Await(FieldRedmineAddress, "address?")
	st.Await(FieldRedmineAuthKey, "key?")

	head, err := st.Consume("https://redmine.example.com")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if head.Field != FieldRedmineAddress || len(st.Prompts) != 1 {
		t.Fatalf("popped %v, queue len %d", head.Field, len(st.Prompts))
	}
	if st.Redmine.Address != "https://redmine.example.com" {
		t.Fatalf("address = %q", st.Redmine.Address)
	}
	if next, ok := st.Head(); !ok || next.Text != "key?" {
		t.Fatalf("Head() = %+v, %v", next, ok)
	}

	if _, err := st.Consume("secret"); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if st.Redmine.AuthKey != "secret" || st.Prompts != nil {
		t.Fatalf("unexpected state: %+v", st)
	}
	if _, err := st.Consume("extra"); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("Consume() on empty queue error = %v", err)
	}
}

func TestConsumeSameValueTwiceIsIdempotent(t *testing.T) {
	once := &UserState{}
	once.Await(FieldOTRSUsername, "user?")
	_, _ = once.Consume("alice")

	twice := &UserState{}
	for i := 0; i < 2; i++ {
		twice.Await(FieldOTRSUsername, "user?")
		_, _ = twice.Consume("alice")
	}
	if once.OTRS != twice.OTRS {
		t.Fatalf("values differ: %+v vs %+v", once.OTRS, twice.OTRS)
	}
}

func TestAwaitSkipsPendingField(t *testing.T) {
	st := &UserState{}
	if !st.Await(FieldOTRSAddress, "a") {
		t.Fatal("first Await() should grow the queue")
	}
	if st.Await(FieldOTRSAddress, "a again") {
		t.Fatal("second Await() should be a no-op")
	}
	if st.Await(Field(99), "bogus") {
		t.Fatal("unknown field must not be queued")
	}
	if len(st.Prompts) != 1 {
		t.Fatalf("queue len = %d", len(st.Prompts))
	}
}

func TestAuthCodeRecordsCurrentOAuthState(t *testing.T) {
	st := &UserState{Gmail: GmailState{OAuthState: "s1"}}
	st.Await(FieldGmailAuthCode, "code?")
	if _, err := st.Consume("4/abc"); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if st.Gmail.AuthCode != "4/abc" || st.Gmail.CodeState != "s1" {
		t.Fatalf("gmail state = %+v", st.Gmail)
	}
}

func TestMissingKeepsOrder(t *testing.T) {
	st := &UserState{OTRS: OTRSState{Username: "bob"}}
	got := st.Missing(FieldOTRSAddress, FieldOTRSUsername, FieldOTRSPassword)
	if len(got) != 2 || got[0] != FieldOTRSAddress || got[1] != FieldOTRSPassword {
		t.Fatalf("Missing() = %v", got)
	}
}

func TestResetClearsServiceAndItsPrompts(t *testing.T) {
	st := &UserState{
		Redmine: RedmineState{Address: "x", AuthKey: "y"},
		OTRS:    OTRSState{Address: "o"},
	}
	st.Await(FieldRedmineAuthKey, "key?")
	st.Await(FieldOTRSPassword, "pass?")

	if err := st.Reset(ServiceRedmine); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if st.Redmine != (RedmineState{}) || st.OTRS.Address != "o" {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
	if len(st.Prompts) != 1 || st.Prompts[0].Field != FieldOTRSPassword {
		t.Fatalf("prompts after reset: %+v", st.Prompts)
	}
	if err := st.Reset("jira"); !errors.Is(err, ErrUnknownService) {
		t.Fatalf("Reset(jira) error = %v", err)
	}
}

func TestFieldTextForm(t *testing.T) {
	raw, err := json.Marshal(Prompt{Field: FieldOTRSPassword, Text: "p"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"field":"otrs/password"`) {
		t.Fatalf("encoded prompt = %s", raw)
	}

	var p Prompt
	if err := json.Unmarshal([]byte(`{"field":"jira/token","text":"?"}`), &p); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("unmarshal unknown field error = %v", err)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := map[string]state.Store{"memory": state.NewMemoryStore()}

	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "state.db")}
	db, err := coredatabase.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer db.Close()
	if err := coredatabase.Migrate(ctx, db, cfg, ""); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	stores["sqlite"] = state.NewSQLStore(db)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, store := range stores {
		repo := NewRepository(store)

		fresh, err := repo.Load(ctx, 7)
		if err != nil {
			t.Fatalf("%s: Load() error = %v", name, err)
		}
		if fresh.Prompts != nil || fresh.Gmail.Token != nil || fresh.Redmine != (RedmineState{}) {
			t.Fatalf("%s: new user state not zero: %+v", name, fresh)
		}

		fresh.Await(FieldOTRSAddress, "address?")
		fresh.Gmail.Token = &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: expiry}
		if err := repo.Save(ctx, 7, fresh); err != nil {
			t.Fatalf("%s: Save() error = %v", name, err)
		}

		got, err := repo.Load(ctx, 7)
		if err != nil {
			t.Fatalf("%s: Load() error = %v", name, err)
		}
		if len(got.Prompts) != 1 || got.Prompts[0].Field != FieldOTRSAddress {
			t.Fatalf("%s: prompts = %+v", name, got.Prompts)
		}
		if got.Gmail.Token == nil || got.Gmail.Token.RefreshToken != "rt" || !got.Gmail.Token.Expiry.Equal(expiry) {
			t.Fatalf("%s: token = %+v", name, got.Gmail.Token)
		}
	}
}
