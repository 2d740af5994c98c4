package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/logging"
)

type capturingPush struct {
	mu     sync.Mutex
	pushes []Push
	err    error
}

func (c *capturingPush) Send(_ context.Context, push Push) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes = append(c.pushes, push)
	return c.err
}

func seed(t *testing.T, repo account.Repository, a account.Account) {
	t.Helper()
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create %s: %v", a.ID, err)
	}
}

func sample() account.Notification {
	return account.Notification{
		Kind:  "test",
		Title: account.Text{EN: "hello", AR: "مرحبا"},
		Body:  account.Text{EN: "body", AR: "نص"},
		Date:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFanoutSend(t *testing.T) {
	repo := account.NewMemoryRepository()
	push := &capturingPush{}
	fanout := NewFanout(repo, push, logging.Discard(), 10)

	seed(t, repo, account.Account{ID: "a1", Email: "a1@example.com", Phone: account.Phone{ICC: "+20", NSN: "100"}, DeviceToken: "t1", Language: account.LanguageEnglish})
	seed(t, repo, account.Account{ID: "a2", Email: "a2@example.com", Phone: account.Phone{ICC: "+20", NSN: "200"}, DeviceToken: "t2", Language: account.LanguageArabic})

	results := fanout.Send(context.Background(), []string{"a1", "a2", "missing"}, sample())
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	byID := make(map[string]DeliveryResult, len(results))
	for _, r := range results {
		byID[r.AccountID] = r
	}
	if byID["a1"].Err != nil || byID["a1"].Skipped {
		t.Fatalf("a1 = %+v, want delivered", byID["a1"])
	}
	if byID["a2"].Err != nil || byID["a2"].Skipped {
		t.Fatalf("a2 = %+v, want delivered", byID["a2"])
	}
	if !errors.Is(byID["missing"].Err, account.ErrNotFound) {
		t.Fatalf("missing = %+v, want ErrNotFound", byID["missing"])
	}

	a1, err := repo.FindByID(context.Background(), "a1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(a1.Notifications) != 1 || a1.Notifications[0].Title.EN != "hello" {
		t.Fatalf("inbox = %v", a1.Notifications)
	}

	if len(push.pushes) != 2 {
		t.Fatalf("pushes = %d, want one per language", len(push.pushes))
	}
	for _, p := range push.pushes {
		switch p.Title {
		case "hello":
			if len(p.Tokens) != 1 || p.Tokens[0] != "t1" {
				t.Fatalf("english push = %+v", p)
			}
		case "مرحبا":
			if len(p.Tokens) != 1 || p.Tokens[0] != "t2" {
				t.Fatalf("arabic push = %+v", p)
			}
		default:
			t.Fatalf("unexpected push title %q", p.Title)
		}
	}
}

func TestFanoutGateSkipsUnseenDuplicate(t *testing.T) {
	repo := account.NewMemoryRepository()
	fanout := NewFanout(repo, &capturingPush{}, logging.Discard(), 10)
	seed(t, repo, account.Account{ID: "a1", Email: "a1@example.com", Phone: account.Phone{ICC: "+20", NSN: "100"}})

	first := fanout.Send(context.Background(), []string{"a1"}, sample())
	if first[0].Skipped || first[0].Err != nil {
		t.Fatalf("first delivery = %+v", first[0])
	}

	second := fanout.Send(context.Background(), []string{"a1"}, sample())
	if !second[0].Skipped {
		t.Fatalf("second delivery = %+v, want skipped", second[0])
	}

	a1, err := repo.FindByID(context.Background(), "a1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(a1.Notifications) != 1 {
		t.Fatalf("inbox = %d entries, want 1", len(a1.Notifications))
	}
}

func TestFanoutFailureDoesNotAbortBatch(t *testing.T) {
	repo := account.NewMemoryRepository()
	fanout := NewFanout(repo, &capturingPush{}, logging.Discard(), 10)
	seed(t, repo, account.Account{ID: "a2", Email: "a2@example.com", Phone: account.Phone{ICC: "+20", NSN: "200"}})

	results := fanout.Send(context.Background(), []string{"missing", "a2"}, sample())
	if results[0].Err == nil {
		t.Fatal("missing account should fail")
	}
	if results[1].Err != nil || results[1].Skipped {
		t.Fatalf("a2 = %+v, want delivered despite earlier failure", results[1])
	}
}

func TestNotifyAdminsOfServerErrors(t *testing.T) {
	repo := account.NewMemoryRepository()
	push := &capturingPush{}
	fanout := NewFanout(repo, push, logging.Discard(), 10)

	admin := account.Account{ID: "ad1", Email: "admin@example.com", Phone: account.Phone{ICC: "+20", NSN: "100"}, Role: account.RoleAdmin, EmailVerified: true, DeviceToken: "t1", Language: account.LanguageEnglish}
	user := account.Account{ID: "u1", Email: "user@example.com", Phone: account.Phone{ICC: "+20", NSN: "200"}}
	seed(t, repo, admin)
	seed(t, repo, user)

	results, err := fanout.NotifyAdminsOfServerErrors(context.Background(), 3)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(results) != 1 || results[0].AccountID != "ad1" {
		t.Fatalf("results = %v, want only the admin", results)
	}

	reloaded, err := repo.FindByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Notifications) != 0 {
		t.Fatal("plain user must not be notified")
	}

	again, err := fanout.NotifyAdminsOfServerErrors(context.Background(), 3)
	if err != nil {
		t.Fatalf("notify again: %v", err)
	}
	if !again[0].Skipped {
		t.Fatalf("recurring tick = %+v, want gated", again[0])
	}
}

func TestNotifyAdminsZeroCount(t *testing.T) {
	fanout := NewFanout(account.NewMemoryRepository(), &capturingPush{}, logging.Discard(), 10)
	results, err := fanout.NotifyAdminsOfServerErrors(context.Background(), 0)
	if err != nil || results != nil {
		t.Fatalf("zero count: results=%v err=%v", results, err)
	}
}
