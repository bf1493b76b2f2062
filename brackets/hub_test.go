package brackets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func subscribe(t *testing.T, hub *Hub, topic string) *Client {
	t.Helper()
	client := NewClient(hub, nil, topic)
	before := hub.RoomSize(topic)
	require.True(t, hub.Subscribe(client))
	require.Eventually(t, func() bool { return hub.RoomSize(topic) == before+1 }, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, client *Client) WebSocketMessage {
	t.Helper()
	select {
	case raw := <-client.Send:
		var msg WebSocketMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return WebSocketMessage{}
}

func TestHubPublishDeliversEnvelope(t *testing.T) {
	hub, _ := newTestHub(t)
	client := subscribe(t, hub, BracketTopic(7))
	other := subscribe(t, hub, TopicLive)

	hub.Publish(BracketTopic(7), "match:ended", map[string]int{"matchId": 3, "winnerId": 11})

	msg := receive(t, client)
	assert.Equal(t, "match:ended", msg.Type)
	assert.Equal(t, "bracket:7", msg.Topic)
	_, err := uuid.Parse(msg.ID)
	assert.NoError(t, err)
	assert.False(t, msg.SentAt.IsZero())
	assert.Equal(t, map[string]interface{}{"matchId": float64(3), "winnerId": float64(11)}, msg.Payload)

	assert.Len(t, other.Send, 0)
}

func TestHubPublishGivesEachMessageItsOwnID(t *testing.T) {
	hub, _ := newTestHub(t)
	client := subscribe(t, hub, TopicLive)

	hub.Publish(TopicLive, "match:update", nil)
	hub.Publish(TopicLive, "match:update", nil)

	first := receive(t, client)
	second := receive(t, client)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub, _ := newTestHub(t)
	done := make(chan struct{})
	go func() {
		hub.Publish(EventTopic(1), "match:started", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub, _ := newTestHub(t)
	client := subscribe(t, hub, TopicLive)

	for i := 0; i < sendBufferSize+10; i++ {
		hub.Publish(TopicLive, "match:update", i)
	}
	assert.Len(t, client.Send, sendBufferSize)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub, _ := newTestHub(t)
	client := subscribe(t, hub, TopicLive)

	hub.Unregister <- client
	require.Eventually(t, func() bool { return hub.RoomSize(TopicLive) == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-client.Send
	assert.False(t, ok)

	// повторная публикация не паникует на закрытом канале
	hub.Publish(TopicLive, "match:update", nil)
}

func TestHubStopClosesSubscribers(t *testing.T) {
	hub, cancel := newTestHub(t)
	client := subscribe(t, hub, EventTopic(4))

	cancel()

	require.Eventually(t, func() bool { return !hub.Subscribe(NewClient(hub, nil, "late")) }, time.Second, 5*time.Millisecond)
	_, ok := <-client.Send
	assert.False(t, ok)
}
