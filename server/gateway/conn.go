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

package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Session is what handlers know about a connection.
type Session struct {
	ConnID   string
	Identity types.Identity
}

// Conn is one client connection. Only the write pump writes to the socket.
type Conn struct {
	id       string
	identity types.Identity
	ws       *websocket.Conn
	logger   logging.Logger

	send      chan []byte
	closing   chan struct{}
	closeOnce sync.Once

	disconnectOnce sync.Once

	// rooms is guarded by the rooms lock of the gateway.
	rooms map[types.ID]struct{}

	writeTimeout time.Duration
	pongTimeout  time.Duration
	pingInterval time.Duration
}

func newConn(id string, identity types.Identity, ws *websocket.Conn, conf *Config) *Conn {
	return &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		logger: logging.New(
			"conn",
			logging.NewField("conn", id),
			logging.NewField("user", identity.UserID),
		),
		send:         make(chan []byte, conf.SendBufferSize),
		closing:      make(chan struct{}),
		rooms:        make(map[types.ID]struct{}),
		writeTimeout: conf.ParseWriteTimeout(),
		pongTimeout:  conf.ParsePongTimeout(),
		pingInterval: conf.ParsePingInterval(),
	}
}

// ID returns the id of the connection.
func (c *Conn) ID() string {
	return c.id
}

// Identity returns the identity bound at handshake.
func (c *Conn) Identity() types.Identity {
	return c.identity
}

// Session returns the session of the connection.
func (c *Conn) Session() Session {
	return Session{ConnID: c.id, Identity: c.identity}
}

// enqueue queues the frame for the write pump. A full queue closes the
// connection and reports false along with dropped set.
func (c *Conn) enqueue(frame []byte) (sent bool, dropped bool) {
	select {
	case <-c.closing:
		return false, false
	default:
	}

	select {
	case c.send <- frame:
		return true, false
	default:
		c.close()
		return false, true
	}
}

// close asks the write pump to close the socket.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debugf("GATE: write: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debugf("GATE: ping: %v", err)
				return
			}
		case <-c.closing:
			c.writeClose(websocket.CloseNormalClosure, "")
			return
		case <-ctx.Done():
			c.writeClose(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (c *Conn) writeClose(code int, reason string) {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(c.writeTimeout),
	)
}

// readPump reads frames until the socket fails and hands each one to
// dispatch.
func (c *Conn) readPump(maxMessageBytes int64, dispatch func(frame []byte)) {
	c.ws.SetReadLimit(maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debugf("GATE: read: %v", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))

		dispatch(frame)
	}
}
