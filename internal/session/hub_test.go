package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func bareSession(clientID, documentID string) *Session {
	return &Session{
		ClientID:   clientID,
		DocumentID: documentID,
		UserID:     "user-" + clientID,
		send:       make(chan outbound, 16),
	}
}

// next returns the next queued message for s.
func next(t *testing.T, s *Session) *Message {
	t.Helper()
	select {
	case out := <-s.send:
		var msg Message
		require.NoError(t, json.Unmarshal(out.data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", s.ClientID)
		return nil
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return hub, cancel
}

func TestHubPresence(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()
	a := bareSession("a", "doc_1")
	b := bareSession("b", "doc_1")
	other := bareSession("c", "doc_2")

	require.True(t, hub.Register(ctx, a))
	state := next(t, a)
	assert.Equal(t, TypePresenceState, state.Type)

	require.True(t, hub.Register(ctx, b))
	assert.Equal(t, TypePresenceState, next(t, b).Type)
	join := next(t, a)
	assert.Equal(t, TypePresenceJoin, join.Type)
	assert.Equal(t, "doc_1", join.DocumentID)

	require.True(t, hub.Register(ctx, other))
	assert.Equal(t, TypePresenceState, next(t, other).Type)
	assert.Eventually(t, func() bool { return hub.RoomCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, hub.Viewers("doc_1"))

	hub.updatePresence(a, &PresencePayload{ClientID: "a", UserID: a.UserID, Cursor: &[3]float64{1, 2, 0}})
	upd := next(t, b)
	assert.Equal(t, TypePresenceUpdate, upd.Type)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(upd.Payload, &p))
	assert.Equal(t, &[3]float64{1, 2, 0}, p.Cursor)
	assert.Empty(t, a.send, "sender does not get its own update")
	assert.Empty(t, other.send, "other documents are not told")

	hub.notifySaved(b, 7)
	saved := next(t, a)
	assert.Equal(t, TypeDocSaved, saved.Type)
	assert.JSONEq(t, `{"version":7}`, string(saved.Payload))

	hub.Unregister(a)
	assert.Equal(t, TypePresenceLeave, next(t, b).Type)
	assert.Eventually(t, func() bool { return hub.Viewers("doc_1") == 1 }, time.Second, 5*time.Millisecond)
}

func TestPresenceStateListsViewers(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()
	a := bareSession("a", "doc_1")
	b := bareSession("b", "doc_1")

	require.True(t, hub.Register(ctx, a))
	next(t, a)
	require.True(t, hub.Register(ctx, b))

	state := next(t, b)
	var p PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &p))
	require.Len(t, p.Viewers, 2)
	assert.Equal(t, "a", p.Viewers[0].ClientID)
	assert.Equal(t, "b", p.Viewers[1].ClientID)
}

func TestHubStopped(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.done

	s := bareSession("a", "doc_1")
	assert.False(t, hub.Register(context.Background(), s))
	hub.Unregister(s) // must not block
}

func TestDeliverDropsWhenFull(t *testing.T) {
	s := &Session{ClientID: "a", send: make(chan outbound, 1)}
	msg := &Message{Type: TypeError}
	s.deliver(msg)
	s.deliver(msg)
	assert.Len(t, s.send, 1)
	assert.Empty(t, msg.DocumentID, "shared messages are not mutated")
}
