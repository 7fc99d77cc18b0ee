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

// Package gateway provides the session gateway: one websocket connection per
// client, the routing of inbound events to a Handler and the delivery of
// outbound events to a connection or to the members of a room.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/api/types/events"
	"github.com/inkwell-team/inkwell/pkg/cmap"
	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/auth"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/backplane"
	"github.com/inkwell-team/inkwell/server/logging"
)

var (
	// ErrConnectionNotFound is returned when the connection is not live on
	// this node.
	ErrConnectionNotFound = errors.NotFound("connection not found").WithCode("ErrConnectionNotFound")

	// ErrInternal is reported to a client whose event could not be handled.
	ErrInternal = errors.Internal("internal error").WithCode("ErrInternal")
)

// Handler handles the events of the sessions.
type Handler interface {
	// HandleEvent handles one decoded event. Events of one connection are
	// handled one at a time, in arrival order.
	HandleEvent(ctx context.Context, sess Session, event events.Inbound)

	// HandleDisconnect is called exactly once per connection after it closed,
	// before the connection leaves its rooms.
	HandleDisconnect(ctx context.Context, sess Session)
}

type localRoom struct {
	conns       map[string]*Conn
	unsubscribe func()
}

// Gateway accepts websocket connections and routes their events.
type Gateway struct {
	conf     *Config
	be       *backend.Backend
	handler  Handler
	upgrader websocket.Upgrader
	logger   logging.Logger

	conns *cmap.Map[string, *Conn]

	roomsMu sync.RWMutex
	rooms   map[types.ID]*localRoom
}

// New creates a new Gateway. Browser handshakes are accepted from the given
// origins; an empty list or "*" accepts every origin.
func New(conf *Config, be *backend.Backend, allowedOrigins []string) *Gateway {
	g := &Gateway{
		conf:   conf,
		be:     be,
		logger: logging.New("gateway"),
		conns:  cmap.New[string, *Conn](),
		rooms:  make(map[types.ID]*localRoom),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

// SetHandler sets the handler of the inbound events. It must be called
// before the gateway serves connections.
func (g *Gateway) SetHandler(handler Handler) {
	g.handler = handler
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(set) == 0 || origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// authenticate resolves the identity of a handshake: a verified token if one
// is given, otherwise the userId and username query parameters.
func (g *Gateway) authenticate(r *http.Request) (types.Identity, error) {
	query := r.URL.Query()

	token := query.Get("token")
	if token == "" {
		token = auth.BearerToken(r)
	}
	if token != "" {
		claims, err := g.be.Tokens.Verify(token)
		if err != nil {
			return types.Identity{}, fmt.Errorf("%s: %w", err, auth.ErrUnauthenticated)
		}
		return claims.Identity(), nil
	}

	if g.conf.RequireToken {
		return types.Identity{}, auth.ErrUnauthenticated
	}

	userID := query.Get("userId")
	if userID == "" {
		return types.Identity{}, nil
	}
	return types.Identity{UserID: userID, Username: query.Get("username")}, nil
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := g.authenticate(r)
	if err != nil {
		g.logger.Infof("GATE: reject handshake from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debugf("GATE: upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	conn := newConn(xid.New().String(), identity, ws, g.conf)
	g.conns.Set(conn.id, conn)
	g.be.Presence.Register(conn.id, identity)
	g.be.Metrics.AddConnection()
	conn.logger.Debugf("GATE: connected, anonymous: %t", identity.IsAnonymous())

	ctx := logging.With(context.Background(), conn.logger)
	if !g.be.Background.AttachGoroutine(conn.writePump, "gateway.write") {
		_ = ws.Close()
		g.disconnect(ctx, conn)
		return
	}

	conn.readPump(g.conf.MaxMessageBytes, func(frame []byte) {
		g.dispatch(ctx, conn, frame)
	})

	conn.close()
	g.disconnect(ctx, conn)
}

func (g *Gateway) dispatch(ctx context.Context, conn *Conn, frame []byte) {
	event, err := events.Decode(frame)
	if err != nil {
		g.be.Metrics.AddReceivedEvent("invalid", "rejected")
		conn.logger.Debugf("GATE: decode: %v", err)
		g.sendError(conn, "", err)
		return
	}
	g.be.Metrics.AddReceivedEvent(string(event.EventName()), "accepted")

	defer func() {
		if r := recover(); r != nil {
			conn.logger.Errorf("GATE: panic while handling %s: %v", event.EventName(), r)
			g.sendError(conn, event.Document(), ErrInternal)
		}
	}()
	g.handler.HandleEvent(ctx, conn.Session(), event)
}

func (g *Gateway) sendError(conn *Conn, docID types.ID, err error) {
	frame, encodeErr := events.Encode(events.DocumentError, &events.DocumentErrorPayload{
		DocumentID: docID,
		Message:    err.Error(),
		Code:       errors.CodeOf(err),
	})
	if encodeErr != nil {
		conn.logger.Errorf("GATE: %v", encodeErr)
		return
	}
	g.deliver(conn, events.DocumentError, frame)
}

// disconnect tears the connection down. It runs once per connection.
func (g *Gateway) disconnect(ctx context.Context, conn *Conn) {
	conn.disconnectOnce.Do(func() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					conn.logger.Errorf("GATE: panic while handling disconnect: %v", r)
				}
			}()
			if g.handler != nil {
				g.handler.HandleDisconnect(ctx, conn.Session())
			}
		}()

		for _, docID := range g.Rooms(conn.id) {
			g.LeaveRoom(conn.id, docID)
		}

		// No-op when the handler already unregistered the connection.
		g.be.Presence.Unregister(conn.id)

		g.conns.Delete(conn.id, func(c *Conn, exists bool) bool {
			return exists && c == conn
		})
		g.be.Metrics.RemoveConnection()
		conn.logger.Debugf("GATE: disconnected")
	})
}

func (g *Gateway) deliver(conn *Conn, event events.Name, frame []byte) bool {
	sent, dropped := conn.enqueue(frame)
	if dropped {
		g.be.Metrics.AddDroppedConnection()
		conn.logger.Warnf("GATE: send buffer full, closing")
	}
	if sent {
		g.be.Metrics.AddSentEvent(string(event))
	}
	return sent
}

// SendToConnection sends the event to one live connection of this node. The
// event is dropped if the connection is gone.
func (g *Gateway) SendToConnection(connID string, name events.Name, payload interface{}) error {
	conn, ok := g.conns.Get(connID)
	if !ok {
		return nil
	}

	frame, err := events.Encode(name, payload)
	if err != nil {
		return err
	}
	g.deliver(conn, name, frame)
	return nil
}

// BroadcastToRoom sends the event to every member connection of the room on
// every node, except excludeConnID.
func (g *Gateway) BroadcastToRoom(
	ctx context.Context,
	docID types.ID,
	name events.Name,
	payload interface{},
	excludeConnID string,
) error {
	frame, err := events.Encode(name, payload)
	if err != nil {
		return err
	}

	return g.be.Backplane.Publish(ctx, backplane.Message{
		Room:    docID,
		Event:   string(name),
		Frame:   frame,
		Exclude: excludeConnID,
	})
}

// fanOut hands a backplane message to the local members of its room.
func (g *Gateway) fanOut(msg backplane.Message) {
	g.roomsMu.RLock()
	room, ok := g.rooms[msg.Room]
	var targets []*Conn
	if ok {
		targets = make([]*Conn, 0, len(room.conns))
		for id, conn := range room.conns {
			if id != msg.Exclude {
				targets = append(targets, conn)
			}
		}
	}
	g.roomsMu.RUnlock()

	g.be.Metrics.ObserveBroadcastRecipients(len(targets))
	for _, conn := range targets {
		g.deliver(conn, events.Name(msg.Event), msg.Frame)
	}
}

// JoinRoom adds the connection to the room. The first local member of a room
// subscribes this node to the room on the backplane. The subscription is made
// without holding roomsMu so that a slow backplane does not stall fanOut.
func (g *Gateway) JoinRoom(ctx context.Context, connID string, docID types.ID) error {
	conn, ok := g.conns.Get(connID)
	if !ok {
		return fmt.Errorf("join %s: %s: %w", docID, connID, ErrConnectionNotFound)
	}

	if g.addToRoom(conn, docID) {
		return nil
	}

	unsubscribe, err := g.be.Backplane.Subscribe(ctx, docID, g.fanOut)
	if err != nil {
		return fmt.Errorf("join %s: %w", docID, err)
	}

	g.roomsMu.Lock()
	room, raced := g.rooms[docID]
	if !raced {
		room = &localRoom{
			conns:       make(map[string]*Conn),
			unsubscribe: unsubscribe,
		}
		g.rooms[docID] = room
	}
	room.conns[connID] = conn
	conn.rooms[docID] = struct{}{}
	g.roomsMu.Unlock()

	// Another member subscribed the room first.
	if raced {
		unsubscribe()
	}
	return nil
}

// addToRoom adds the connection to the room if the room is already
// subscribed, and reports whether it did.
func (g *Gateway) addToRoom(conn *Conn, docID types.ID) bool {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	room, ok := g.rooms[docID]
	if !ok {
		return false
	}
	room.conns[conn.id] = conn
	conn.rooms[docID] = struct{}{}
	return true
}

// LeaveRoom removes the connection from the room. The last local member of a
// room unsubscribes this node from it.
func (g *Gateway) LeaveRoom(connID string, docID types.ID) {
	g.roomsMu.Lock()
	room, ok := g.rooms[docID]
	if !ok {
		g.roomsMu.Unlock()
		return
	}

	if conn, ok := room.conns[connID]; ok {
		delete(conn.rooms, docID)
		delete(room.conns, connID)
	}

	empty := len(room.conns) == 0
	if empty {
		delete(g.rooms, docID)
	}
	g.roomsMu.Unlock()

	if empty {
		room.unsubscribe()
	}
}

// Rooms returns the rooms of the connection, sorted.
func (g *Gateway) Rooms(connID string) []types.ID {
	conn, ok := g.conns.Get(connID)
	if !ok {
		return nil
	}

	g.roomsMu.RLock()
	rooms := make([]types.ID, 0, len(conn.rooms))
	for docID := range conn.rooms {
		rooms = append(rooms, docID)
	}
	g.roomsMu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Len returns the number of live connections of this node.
func (g *Gateway) Len() int {
	return g.conns.Len()
}

// Close closes every live connection.
func (g *Gateway) Close() {
	for _, conn := range g.conns.Values() {
		conn.close()
	}
}
