package sessionws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/saeid-a/GymSessionsBack/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		if !ok {
			t.Fatalf("client channel closed")
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case payload := <-client.send:
		t.Fatalf("unexpected message %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversOnlyToRecipients(t *testing.T) {
	hub, _ := startHub(t)
	trainer := NewClient(hub, nil, 7)
	member := NewClient(hub, nil, 1)
	stranger := NewClient(hub, nil, 99)
	hub.Register(trainer)
	hub.Register(member)
	hub.Register(stranger)

	event := models.SessionEvent{
		ID:         "evt-1",
		SessionID:  5,
		Type:       models.EventParticipantApproved,
		Recipients: []int64{7, 1, 7},
		CreatedAt:  time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := hub.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	for _, client := range []*Client{trainer, member} {
		msg := receive(t, client)
		if msg.Type != "session_event" || msg.Event == nil || msg.Event.ID != "evt-1" {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.Timestamp != "2030-06-01T09:00:00Z" {
			t.Fatalf("unexpected timestamp %q", msg.Timestamp)
		}
	}
	expectNothing(t, trainer)
	expectNothing(t, stranger)
}

func TestHubFansOutToEveryConnectionOfAUser(t *testing.T) {
	hub, _ := startHub(t)
	phone := NewClient(hub, nil, 1)
	laptop := NewClient(hub, nil, 1)
	hub.Register(phone)
	hub.Register(laptop)

	if err := hub.Deliver(context.Background(), models.SessionEvent{ID: "evt-2", Recipients: []int64{1}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	receive(t, phone)
	receive(t, laptop)

	hub.Unregister(phone)
	if err := hub.Deliver(context.Background(), models.SessionEvent{ID: "evt-3", Recipients: []int64{1}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if msg := receive(t, laptop); msg.Event.ID != "evt-3" {
		t.Fatalf("unexpected event %+v", msg.Event)
	}
	if _, ok := <-phone.send; ok {
		t.Fatalf("expected unregistered client channel to be closed")
	}
}

func TestHubStopsWithContext(t *testing.T) {
	hub, cancel := startHub(t)
	client := NewClient(hub, nil, 3)
	hub.Register(client)

	cancel()
	if _, ok := <-client.send; ok {
		t.Fatalf("expected client channel to be closed on shutdown")
	}
	if err := hub.Deliver(context.Background(), models.SessionEvent{ID: "late"}); !errors.Is(err, ErrHubStopped) && err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTrySendAfterCloseIsSafe(t *testing.T) {
	client := NewClient(NewHub(), nil, 1)
	client.closeSend()
	client.closeSend()
	if client.trySend([]byte("x")) {
		t.Fatalf("expected send on closed client to fail")
	}
	client.reply("pong", "")
}
