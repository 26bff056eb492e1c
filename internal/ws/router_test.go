package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchesTypedHandler(t *testing.T) {
	r := NewRouter()
	var got RoomBody
	Register(r, "room.join", func(ctx context.Context, c *ConnContext, req RoomBody) (*Reply, error) {
		got = req
		return &Reply{Event: "joined", Body: req.DocumentID}, nil
	})

	reply, err := r.dispatch(context.Background(), &ConnContext{ConnID: "c1"},
		Envelope{Event: "room.join", Body: json.RawMessage(`{"documentId":"doc1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "doc1", got.DocumentID)
	require.NotNil(t, reply)
	assert.Equal(t, "joined", reply.Event)
}

func TestRouterUnknownEvent(t *testing.T) {
	r := NewRouter()
	_, err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: "no.such.event"})
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestRouterMalformedBody(t *testing.T) {
	r := NewRouter()
	called := false
	Register(r, "typing", func(ctx context.Context, c *ConnContext, req TypingBody) (*Reply, error) {
		called = true
		return nil, nil
	})

	_, err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: "typing", Body: json.RawMessage(`{"isTyping": "not-a-bool"`)})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRouterEmptyBodyIsZeroRequest(t *testing.T) {
	r := NewRouter()
	Register(r, "activity.ping", func(ctx context.Context, c *ConnContext, req PingBody) (*Reply, error) {
		return nil, nil
	})

	reply, err := r.dispatch(context.Background(), &ConnContext{},
		Envelope{Event: "activity.ping"})
	require.NoError(t, err)
	assert.Nil(t, reply, "relay-style handlers return no reply frame")
}

func TestRegistrySendToGoneRecipient(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Send("gone", "typing", nil),
		"sends to departed connections are swallowed so fan-outs continue")
}
