/*
 * Copyright 2024 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/api/types/events"
	"github.com/inkwell-team/inkwell/server/backend/backplane"
	"github.com/inkwell-team/inkwell/server/gateway"
	"github.com/inkwell-team/inkwell/test/helper"
)

type testHandler struct {
	gw          *gateway.Gateway
	disconnects chan gateway.Session
	handled     atomic.Int32
}

func (h *testHandler) HandleEvent(ctx context.Context, sess gateway.Session, event events.Inbound) {
	h.handled.Add(1)

	switch e := event.(type) {
	case *events.JoinDocumentPayload:
		if err := h.gw.JoinRoom(ctx, sess.ConnID, e.DocumentID); err != nil {
			panic(err)
		}
		_ = h.gw.SendToConnection(sess.ConnID, events.DocumentUsers, []types.Member{})
	case *events.CursorMovePayload:
		_ = h.gw.BroadcastToRoom(ctx, e.DocumentID, events.CursorMoved, &events.CursorMovedPayload{
			DocumentID: e.DocumentID,
			UserID:     sess.Identity.UserID,
			Username:   sess.Identity.Username,
			Position:   e.Position,
		}, sess.ConnID)
	case *events.LockDocumentPayload:
		panic("boom")
	}
}

func (h *testHandler) HandleDisconnect(_ context.Context, sess gateway.Session) {
	h.disconnects <- sess
}

func newTestGateway(t *testing.T, conf *gateway.Config) (*gateway.Gateway, *testHandler, *httptest.Server) {
	be := helper.TestBackend(t)
	if conf == nil {
		conf = helper.TestConfig().Gateway
	}

	gw := gateway.New(conf, be, nil)
	handler := &testHandler{gw: gw, disconnects: make(chan gateway.Session, 16)}
	gw.SetHandler(handler)

	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})
	return gw, handler, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?"+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, name events.Name, payload interface{}) {
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(events.Envelope{Event: name, Data: data}))
}

func read(t *testing.T, ws *websocket.Conn) events.Envelope {
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env events.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestGateway(t *testing.T) {
	t.Run("room broadcast excludes the sender test", func(t *testing.T) {
		_, _, srv := newTestGateway(t, nil)

		alice := dial(t, srv, "userId=alice&username=Alice")
		bob := dial(t, srv, "userId=bob&username=Bob")

		for _, ws := range []*websocket.Conn{alice, bob} {
			send(t, ws, events.JoinDocument, map[string]string{"documentId": "doc1"})
			assert.Equal(t, events.DocumentUsers, read(t, ws).Event)
		}

		send(t, bob, events.CursorMove, map[string]interface{}{"documentId": "doc1", "position": 7})
		env := read(t, alice)
		require.Equal(t, events.CursorMoved, env.Event)

		var moved events.CursorMovedPayload
		require.NoError(t, json.Unmarshal(env.Data, &moved))
		assert.Equal(t, "bob", moved.UserID)
		assert.Equal(t, "Bob", moved.Username)
		assert.JSONEq(t, "7", string(moved.Position))

		// The next frame bob sees answers his own join, not his cursor.
		send(t, bob, events.JoinDocument, map[string]string{"documentId": "doc1"})
		assert.Equal(t, events.DocumentUsers, read(t, bob).Event)
	})

	t.Run("malformed frame keeps the connection test", func(t *testing.T) {
		_, handler, srv := newTestGateway(t, nil)
		ws := dial(t, srv, "")

		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
		env := read(t, ws)
		require.Equal(t, events.DocumentError, env.Event)

		var payload events.DocumentErrorPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, "ErrMalformedEvent", payload.Code)

		send(t, ws, "rename-document", map[string]string{"documentId": "doc1"})
		require.NoError(t, json.Unmarshal(read(t, ws).Data, &payload))
		assert.Equal(t, "ErrUnknownEvent", payload.Code)

		send(t, ws, events.JoinDocument, map[string]string{"documentId": "doc1"})
		assert.Equal(t, events.DocumentUsers, read(t, ws).Event)
		assert.Equal(t, int32(1), handler.handled.Load())
	})

	t.Run("handler panic is reported to the sender test", func(t *testing.T) {
		_, _, srv := newTestGateway(t, nil)
		ws := dial(t, srv, "userId=alice")

		send(t, ws, events.LockDocument, map[string]string{"documentId": "doc1"})
		env := read(t, ws)
		require.Equal(t, events.DocumentError, env.Event)

		var payload events.DocumentErrorPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, "ErrInternal", payload.Code)
		assert.Equal(t, types.ID("doc1"), payload.DocumentID)

		send(t, ws, events.JoinDocument, map[string]string{"documentId": "doc1"})
		assert.Equal(t, events.DocumentUsers, read(t, ws).Event)
	})

	t.Run("disconnect is reported once test", func(t *testing.T) {
		gw, handler, srv := newTestGateway(t, nil)
		ws := dial(t, srv, "userId=alice&username=Alice")

		send(t, ws, events.JoinDocument, map[string]string{"documentId": "doc1"})
		assert.Equal(t, events.DocumentUsers, read(t, ws).Event)
		require.Equal(t, 1, gw.Len())

		require.NoError(t, ws.Close())

		select {
		case sess := <-handler.disconnects:
			assert.Equal(t, "alice", sess.Identity.UserID)
		case <-time.After(3 * time.Second):
			t.Fatal("disconnect was not reported")
		}

		assert.Eventually(t, func() bool { return gw.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
		select {
		case <-handler.disconnects:
			t.Fatal("disconnect was reported twice")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("handshake token test", func(t *testing.T) {
		conf := *helper.TestConfig().Gateway
		conf.RequireToken = true
		_, _, srv := newTestGateway(t, &conf)

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		_, resp, err := websocket.DefaultDialer.Dial(url+"?userId=alice", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// gatedBackplane holds the subscriptions of one room until released.
type gatedBackplane struct {
	backplane.Backplane
	room    types.ID
	entered atomic.Int32
	release chan struct{}
}

func (b *gatedBackplane) Subscribe(
	ctx context.Context,
	room types.ID,
	deliver backplane.DeliverFunc,
) (func(), error) {
	if room == b.room {
		b.entered.Add(1)
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.Backplane.Subscribe(ctx, room, deliver)
}

func TestJoinRoom(t *testing.T) {
	be := helper.TestBackend(t)
	gated := &gatedBackplane{Backplane: be.Backplane, room: "slow", release: make(chan struct{})}
	be.Backplane = gated

	gw := gateway.New(helper.TestConfig().Gateway, be, nil)
	handler := &testHandler{gw: gw, disconnects: make(chan gateway.Session, 16)}
	gw.SetHandler(handler)
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})

	alice := dial(t, srv, "userId=alice&username=Alice")
	bob := dial(t, srv, "userId=bob&username=Bob")
	carol := dial(t, srv, "userId=carol&username=Carol")
	dave := dial(t, srv, "userId=dave&username=Dave")

	for _, ws := range []*websocket.Conn{alice, bob} {
		send(t, ws, events.JoinDocument, map[string]string{"documentId": "doc1"})
		assert.Equal(t, events.DocumentUsers, read(t, ws).Event)
	}

	t.Run("pending subscription does not stall other rooms test", func(t *testing.T) {
		send(t, carol, events.JoinDocument, map[string]string{"documentId": "slow"})
		send(t, dave, events.JoinDocument, map[string]string{"documentId": "slow"})
		require.Eventually(t, func() bool {
			return gated.entered.Load() == 2
		}, 3*time.Second, 10*time.Millisecond)

		send(t, bob, events.CursorMove, map[string]interface{}{"documentId": "doc1", "position": 1})
		assert.Equal(t, events.CursorMoved, read(t, alice).Event)
	})

	t.Run("racing subscriptions deliver once test", func(t *testing.T) {
		close(gated.release)
		assert.Equal(t, events.DocumentUsers, read(t, carol).Event)
		assert.Equal(t, events.DocumentUsers, read(t, dave).Event)

		send(t, dave, events.CursorMove, map[string]interface{}{"documentId": "slow", "position": 2})
		assert.Equal(t, events.CursorMoved, read(t, carol).Event)

		require.NoError(t, carol.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := carol.ReadMessage()
		assert.Error(t, err)
	})
}

func TestConfig(t *testing.T) {
	valid := *helper.TestConfig().Gateway
	assert.NoError(t, valid.Validate())

	conf1 := valid
	conf1.SendBufferSize = 0
	assert.ErrorIs(t, conf1.Validate(), gateway.ErrInvalidSendBufferSize)

	conf2 := valid
	conf2.PingInterval = valid.PongTimeout
	assert.ErrorIs(t, conf2.Validate(), gateway.ErrInvalidPingInterval)

	conf3 := valid
	conf3.WriteTimeout = "soon"
	assert.Error(t, conf3.Validate())
}
