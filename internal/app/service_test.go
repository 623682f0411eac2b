package app

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"ENSWatch/domain"
)

type serviceFixture struct {
	svc      *Service
	storage  *domain.MemoryStorage
	resolver *fakeResolver
	prompter *fakePrompter
	notifier *fakeNotifier
}

func newFixture(t *testing.T, storage domain.Storage) *serviceFixture {
	t.Helper()
	mem, _ := storage.(*domain.MemoryStorage)
	if storage == nil {
		mem = domain.NewMemoryStorage()
		storage = mem
	}
	f := &serviceFixture{
		storage:  mem,
		resolver: &fakeResolver{records: map[string]domain.Record{}},
		prompter: &fakePrompter{answer: true},
		notifier: &fakeNotifier{},
	}
	svc, err := NewService(Host{
		Resolver: f.resolver,
		Storage:  storage,
		Prompter: f.prompter,
		Notifier: f.notifier,
	}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.Now = func() time.Time { return now }
	f.svc = svc
	return f
}

func (f *serviceFixture) seed(t *testing.T, w *domain.Watchlist) {
	t.Helper()
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := f.storage.Set(context.Background(), data); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *serviceFixture) persisted(t *testing.T) *domain.Watchlist {
	t.Helper()
	w, err := f.svc.Store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return w
}

func TestNewServiceRequiresAllCapabilities(t *testing.T) {
	if _, err := NewService(Host{}, nil); !errors.Is(err, ErrMissingDependencies) {
		t.Fatalf("expected ErrMissingDependencies, got %v", err)
	}
}

func TestToggleAddsResolvedRecord(t *testing.T) {
	f := newFixture(t, nil)
	rec := domain.Record{Owner: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", ExpirationDate: 2032306999000}
	f.resolver.records["vitalik"] = rec

	res, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "vitalik"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	toggle := res.(*ToggleResult)
	if toggle.Action != ActionAdded || toggle.Record != rec {
		t.Fatalf("unexpected result %+v", toggle)
	}
	got, ok := f.persisted(t).Get("vitalik")
	if !ok || got != rec {
		t.Fatalf("expected vitalik persisted with %+v, got %+v", rec, got)
	}
	if len(f.prompter.prompts) != 1 || f.prompter.prompts[0].Prompt != "Add Notification" {
		t.Fatalf("expected one add prompt, got %+v", f.prompter.prompts)
	}
}

func TestToggleRemovesStoredLabelWithoutResolving(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, watchlistOf(
		"vitalik", domain.Record{Owner: "0x1", ExpirationDate: 1},
		"nick", domain.Record{Owner: "0x2", ExpirationDate: 2},
	))

	res, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "vitalik"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*ToggleResult).Action != ActionRemoved {
		t.Fatalf("expected removal, got %+v", res)
	}
	if len(f.resolver.calls) != 0 {
		t.Fatalf("removal must not resolve, got calls %v", f.resolver.calls)
	}
	w := f.persisted(t)
	if w.Has("vitalik") || !w.Has("nick") {
		t.Fatalf("unexpected watchlist %v", w.Labels())
	}
}

func TestToggleDeclinedLeavesWatchlist(t *testing.T) {
	f := newFixture(t, nil)
	f.prompter.answer = false
	f.resolver.records["nick"] = domain.Record{Owner: "0x2", ExpirationDate: 2}

	res, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "nick"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.(*ToggleResult).Action != ActionDeclined {
		t.Fatalf("expected declined, got %+v", res)
	}
	if f.persisted(t).Len() != 0 {
		t.Fatal("declined toggle must not persist anything")
	}
}

func TestToggleResolutionFailureDoesNotPrompt(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.errs = map[string]error{"ghost": errors.New("not registered")}

	if _, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "ghost"}); err == nil {
		t.Fatal("expected resolution error")
	}
	if len(f.prompter.prompts) != 0 {
		t.Fatalf("expected no prompt, got %+v", f.prompter.prompts)
	}
}

type rejectingStorage struct {
	*domain.MemoryStorage
}

func (r rejectingStorage) Set(ctx context.Context, data []byte) error {
	return errors.New("disk full")
}

func TestTogglePersistenceFailure(t *testing.T) {
	f := newFixture(t, rejectingStorage{domain.NewMemoryStorage()})
	f.resolver.records["nick"] = domain.Record{Owner: "0x2", ExpirationDate: 2}

	_, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "nick"})
	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestCheckNotifiesExpiringInOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, watchlistOf(
		"soon", expiresIn(2*24*time.Hour),
		"far", expiresIn(60*24*time.Hour),
		"sooner", expiresIn(time.Hour),
	))

	res, err := f.svc.Handle(context.Background(), CheckExpirationDate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	check := res.(*CheckResult)
	if !reflect.DeepEqual(check.Expiring, []string{"soon", "sooner"}) {
		t.Fatalf("unexpected expiring %v", check.Expiring)
	}
	want := []string{
		BuildNotificationText("soon", now.Add(2*24*time.Hour).UnixMilli()),
		BuildNotificationText("sooner", now.Add(time.Hour).UnixMilli()),
	}
	if !reflect.DeepEqual(f.notifier.messages, want) {
		t.Fatalf("expected %v, got %v", want, f.notifier.messages)
	}
}

func TestCheckEmptyWatchlistSendsNothing(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Handle(context.Background(), CheckExpirationDate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.(*CheckResult).Expiring) != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("expected no notifications, got %v", f.notifier.messages)
	}
}

func TestUpdateRefreshesOnlyChangedEntries(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, watchlistOf(
		"vitalik", domain.Record{Owner: "0x1", ExpirationDate: 1000},
		"nick", domain.Record{Owner: "0x2", ExpirationDate: 2000},
		"broken", domain.Record{Owner: "0x3", ExpirationDate: 3000},
	))
	f.resolver.records["vitalik"] = domain.Record{Owner: "0x1", ExpirationDate: 9000}
	f.resolver.records["nick"] = domain.Record{Owner: "0x2", ExpirationDate: 2000}
	f.resolver.errs = map[string]error{"broken": errors.New("rpc down")}

	res, err := f.svc.Handle(context.Background(), UpdateExpirationDates{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	update := res.(*UpdateResult)
	if !reflect.DeepEqual(update.Updated, []string{"vitalik"}) {
		t.Fatalf("unexpected updated %v", update.Updated)
	}
	if len(update.Failures) != 1 || update.Failures[0].Label != "broken" {
		t.Fatalf("unexpected failures %+v", update.Failures)
	}

	w := f.persisted(t)
	if rec, _ := w.Get("vitalik"); rec.ExpirationDate != 9000 {
		t.Fatalf("vitalik not refreshed: %+v", rec)
	}
	if rec, _ := w.Get("broken"); rec.ExpirationDate != 3000 {
		t.Fatalf("failed label must keep its record: %+v", rec)
	}
	if !reflect.DeepEqual(w.Labels(), []string{"vitalik", "nick", "broken"}) {
		t.Fatalf("order changed: %v", w.Labels())
	}
}

func TestUpdateDoesNotResurrectRemovedLabel(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, watchlistOf(
		"vitalik", domain.Record{Owner: "0x1", ExpirationDate: 1000},
		"nick", domain.Record{Owner: "0x2", ExpirationDate: 2000},
	))
	f.resolver.records["vitalik"] = domain.Record{Owner: "0x1", ExpirationDate: 9000}
	f.resolver.records["nick"] = domain.Record{Owner: "0x2", ExpirationDate: 8000}

	var once sync.Once
	f.resolver.hook = func(label string) {
		if label != "vitalik" {
			return
		}
		once.Do(func() {
			if _, err := f.svc.Handle(context.Background(), AddOrRemoveENSDomain{ENSDomain: "vitalik"}); err != nil {
				t.Errorf("concurrent removal: %v", err)
			}
		})
	}

	res, err := f.svc.Handle(context.Background(), UpdateExpirationDates{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.(*UpdateResult).Updated, []string{"nick"}) {
		t.Fatalf("expected only nick updated, got %v", res.(*UpdateResult).Updated)
	}
	w := f.persisted(t)
	if w.Has("vitalik") {
		t.Fatal("removed label was written back by refresh")
	}
	if rec, _ := w.Get("nick"); rec.ExpirationDate != 8000 {
		t.Fatalf("nick not refreshed: %+v", rec)
	}
}

func TestHandleUnknownRequest(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Handle(context.Background(), unknownRequest{})
	if !IsNotFound(err) {
		t.Fatalf("expected MethodNotFoundError, got %v", err)
	}
}

type unknownRequest struct{}

func (unknownRequest) Method() string { return "getTokenId" }

func TestLookupNormalisesInput(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.records["nick"] = domain.Record{Owner: "0x2", ExpirationDate: 2}

	label, rec, err := f.svc.Lookup(context.Background(), " Nick.eth ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "nick" || rec.Owner != "0x2" {
		t.Fatalf("unexpected lookup %s %+v", label, rec)
	}
	if f.persisted(t).Len() != 0 {
		t.Fatal("lookup must not touch the watchlist")
	}
}
