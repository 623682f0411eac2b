package app

import (
	"context"
	"reflect"
	"testing"
	"time"

	"ENSWatch/domain"
)

func TestBuildNotificationText(t *testing.T) {
	got := BuildNotificationText("vitalik", 1694508487000)
	want := "The ENS Domain vitalik.eth will expire on Tue Sep 12 2023."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNotificationTextInZone(t *testing.T) {
	loc := time.FixedZone("UTC-12", -12*3600)
	// 2023-09-12 08:48 UTC is still the 11th at UTC-12.
	got := NotificationTextIn("vitalik", 1694508487000, loc)
	want := "The ENS Domain vitalik.eth will expire on Mon Sep 11 2023."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAddOrRemoveMessage(t *testing.T) {
	add := AddOrRemoveMessage("nick", false)
	if add.Prompt != "Add Notification" || add.TextAreaContent != "Are you sure you want to add a notification for nick.eth?" {
		t.Fatalf("unexpected add prompt %+v", add)
	}
	rm := AddOrRemoveMessage("nick", true)
	if rm.Prompt != "Remove Notification" || rm.Description != "ENS Domain nick.eth" {
		t.Fatalf("unexpected remove prompt %+v", rm)
	}
}

func TestNotifierServiceSkipsFailedDeliveries(t *testing.T) {
	w := watchlistOf(
		"a", domain.Record{Owner: "0x1", ExpirationDate: 1694508487000},
		"b", domain.Record{Owner: "0x2", ExpirationDate: 1694508487000},
	)
	notifier := &fakeNotifier{fail: map[string]bool{
		BuildNotificationText("a", 1694508487000): true,
	}}
	svc := &NotifierService{Notifier: notifier}

	sent, err := svc.Notify(context.Background(), w, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(sent, []string{"b"}) {
		t.Fatalf("expected only b to be sent, got %v", sent)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one delivered message, got %v", notifier.messages)
	}
}

func TestNotifierServiceRequiresNotifier(t *testing.T) {
	svc := &NotifierService{}
	if _, err := svc.Notify(context.Background(), domain.NewWatchlist(), nil); err != ErrMissingDependencies {
		t.Fatalf("expected ErrMissingDependencies, got %v", err)
	}
}
