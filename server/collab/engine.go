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

// Package collab provides the document sync engine. It handles the realtime
// events of the sessions: room membership, change propagation with version
// stamping, cursor relay and the advisory lock.
package collab

import (
	"context"
	"time"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/api/types/events"
	"github.com/inkwell-team/inkwell/pkg/cmap"
	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/messagebroker"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/server/gateway"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Messages reported in document-error payloads.
const (
	MessageDocumentNotFound = "Document not found"
	MessagePermissionDenied = "Permission denied"
	MessageUnauthenticated  = "Authentication required"
	MessageLoadFailed       = "Failed to load document"
	MessageSaveFailed       = "Failed to save changes"
	MessageJoinFailed       = "Failed to join document"
	MessageNotJoined        = "Join the document first"
)

// ErrAnonymous is reported to anonymous connections sending events that need
// an identity.
var ErrAnonymous = errors.Unauthenticated("anonymous connection").WithCode("ErrAnonymous")

// ErrMissingContent is reported for changes without content.
var ErrMissingContent = errors.InvalidArgument("change without content").WithCode("ErrMissingContent")

// ErrNotJoined is reported to users relaying cursor or lock events into a
// room they have not joined.
var ErrNotJoined = errors.FailedPrecond("not a member of the document room").WithCode("ErrNotJoined")

// Transport delivers events to the connections. It is implemented by
// gateway.Gateway.
type Transport interface {
	SendToConnection(connID string, name events.Name, payload interface{}) error
	BroadcastToRoom(ctx context.Context, docID types.ID, name events.Name, payload interface{}, excludeConnID string) error
	JoinRoom(ctx context.Context, connID string, docID types.ID) error
	LeaveRoom(connID string, docID types.ID)
}

// Engine is the document sync engine.
type Engine struct {
	be        *backend.Backend
	transport Transport

	// locks maps a document to the holder of its advisory lock.
	locks *cmap.Map[types.ID, types.Member]

	// relayed maps a document to the highest version stamped on its
	// document-changed broadcasts.
	relayed *cmap.Map[types.ID, int]
}

// New creates a new Engine that sends through the given transport.
func New(be *backend.Backend, transport Transport) *Engine {
	return &Engine{
		be:        be,
		transport: transport,
		locks:     cmap.New[types.ID, types.Member](),
		relayed:   cmap.New[types.ID, int](),
	}
}

// LockHolder returns the holder of the advisory lock of the document.
func (e *Engine) LockHolder(docID types.ID) (types.Member, bool) {
	return e.locks.Get(docID)
}

// HandleEvent handles one event of a session.
func (e *Engine) HandleEvent(ctx context.Context, sess gateway.Session, event events.Inbound) {
	switch ev := event.(type) {
	case *events.JoinDocumentPayload:
		e.join(ctx, sess, ev)
	case *events.GetDocumentPayload:
		e.get(ctx, sess, ev)
	case *events.DocumentChangePayload:
		e.change(ctx, sess, ev)
	case *events.CursorMovePayload:
		e.moveCursor(ctx, sess, ev)
	case *events.LockDocumentPayload:
		e.lock(ctx, sess, ev)
	case *events.UnlockDocumentPayload:
		e.unlock(ctx, sess, ev)
	case *events.LeaveDocumentPayload:
		e.leave(ctx, sess, ev)
	default:
		logging.From(ctx).Warnf("SYNC: unhandled event %s", event.EventName())
	}
}

// HandleDisconnect removes the session from every room it joined and tells
// the remaining members.
func (e *Engine) HandleDisconnect(ctx context.Context, sess gateway.Session) {
	for _, departure := range e.be.Presence.Unregister(sess.ConnID) {
		e.announceDeparture(ctx, sess, departure.DocumentID, departure.Member)
	}
}

// member returns the session user as room members see it. The username of
// the presence entry wins over the one of the handshake.
func (e *Engine) member(sess gateway.Session) types.Member {
	username, ok := e.be.Presence.Username(sess.Identity.UserID)
	if !ok {
		username = sess.Identity.Username
	}
	return types.Member{UserID: sess.Identity.UserID, Username: username}
}

func (e *Engine) join(ctx context.Context, sess gateway.Session, ev *events.JoinDocumentPayload) {
	docID := ev.DocumentID
	if err := e.transport.JoinRoom(ctx, sess.ConnID, docID); err != nil {
		logging.From(ctx).Errorf("SYNC: join %s: %v", docID, err)
		e.sendError(ctx, sess, docID, MessageJoinFailed, err)
		return
	}

	if !sess.Identity.IsAnonymous() {
		me := e.member(sess)
		if e.be.Presence.AddToRoom(docID, me.UserID, sess.ConnID) {
			e.broadcast(ctx, docID, events.UserJoined, &events.UserPayload{
				DocumentID: docID,
				UserID:     me.UserID,
				Username:   me.Username,
			}, sess.ConnID)
			e.producePresence(docID, messagebroker.UserJoinedEvent, me.UserID)
		}
	}

	e.send(ctx, sess, events.DocumentUsers, e.be.Presence.ListRoom(docID))

	if holder, ok := e.locks.Get(docID); ok {
		e.send(ctx, sess, events.DocumentLocked, &events.UserPayload{
			DocumentID: docID,
			UserID:     holder.UserID,
			Username:   holder.Username,
		})
	}
}

func (e *Engine) get(ctx context.Context, sess gateway.Session, ev *events.GetDocumentPayload) {
	info, err := documents.Get(ctx, e.be, ev.DocumentID, sess.Identity.UserID)
	if err != nil {
		e.sendError(ctx, sess, ev.DocumentID, MessageLoadFailed, err)
		return
	}

	e.send(ctx, sess, events.LoadDocument, &events.LoadDocumentPayload{
		DocumentID: info.ID,
		Title:      info.Title,
		Content:    info.Content,
		Version:    info.Version,
	})
}

func (e *Engine) change(ctx context.Context, sess gateway.Session, ev *events.DocumentChangePayload) {
	docID := ev.DocumentID
	if sess.Identity.IsAnonymous() {
		e.sendError(ctx, sess, docID, MessageUnauthenticated, ErrAnonymous)
		return
	}
	me := e.member(sess)

	if ev.Changes.Content == nil {
		e.be.Metrics.AddChange("rejected", e.be.Config.Hostname)
		e.sendError(ctx, sess, docID, MessageSaveFailed, ErrMissingContent)
		return
	}
	if err := documents.CheckAccess(ctx, e.be, docID, me.UserID, types.PermWrite); err != nil {
		e.be.Metrics.AddChange("rejected", e.be.Config.Hostname)
		e.sendError(ctx, sess, docID, MessageSaveFailed, err)
		return
	}

	locker := e.be.Lockers.Locker(documents.LockKey(docID))
	locker.Lock()
	defer func() {
		if err := locker.Unlock(); err != nil {
			logging.From(ctx).Errorf("SYNC: %v", err)
		}
	}()

	start := time.Now()
	info, err := documents.Save(ctx, e.be, docID, me.UserID, *ev.Changes.Content, ev.Changes.Title)
	e.be.Metrics.ObservePersistSeconds(time.Since(start).Seconds())

	var version int
	switch {
	case errors.IsStatus(err, errors.ErrCodeNotFound):
		e.be.Metrics.AddChange("rejected", e.be.Config.Hostname)
		e.sendError(ctx, sess, docID, MessageSaveFailed, err)
		return
	case err != nil:
		e.be.Metrics.AddChange("failed", e.be.Config.Hostname)
		logging.From(ctx).Errorf("SYNC: save %s: %v", docID, err)
		e.sendError(ctx, sess, docID, MessageSaveFailed, err)
		version = e.stampVersion(docID, e.floorVersion(ctx, docID, ev.Version))
	default:
		e.be.Metrics.AddChange("persisted", e.be.Config.Hostname)
		if ev.Version < info.Version-1 {
			e.be.Metrics.AddStaleChange()
			logging.From(ctx).Debugf(
				"SYNC: %s wrote %s based on version %d, latest was %d",
				me.UserID, docID, ev.Version, info.Version-1,
			)
		}
		version = e.stampVersion(docID, info.Version)
	}

	e.broadcast(ctx, docID, events.DocumentChanged, &events.DocumentChangedPayload{
		DocumentID: docID,
		Changes:    ev.Changes,
		UserID:     me.UserID,
		Username:   me.Username,
		Version:    version,
	}, sess.ConnID)
	e.produceDocument(docID, messagebroker.DocumentChangedEvent, me.UserID, version)
}

// roomMember returns the session user if it joined the room, and reports the
// failure to the session otherwise.
func (e *Engine) roomMember(ctx context.Context, sess gateway.Session, docID types.ID) (types.Member, bool) {
	if sess.Identity.IsAnonymous() {
		e.sendError(ctx, sess, docID, MessageUnauthenticated, ErrAnonymous)
		return types.Member{}, false
	}
	if !e.be.Presence.IsMember(docID, sess.Identity.UserID) {
		e.sendError(ctx, sess, docID, MessageNotJoined, ErrNotJoined)
		return types.Member{}, false
	}
	return e.member(sess), true
}

// floorVersion returns the version of an unsaved change: the declared one,
// raised to the stored version when that can still be read. Must be called
// with the document locker held.
func (e *Engine) floorVersion(ctx context.Context, docID types.ID, declared int) int {
	info, err := e.be.DB.FindDocInfoByID(ctx, docID)
	if err != nil {
		logging.From(ctx).Warnf("SYNC: read version of %s: %v", docID, err)
		return declared
	}
	return max(declared, info.Version)
}

// stampVersion records version as relayed for the document and returns the
// highest version relayed so far, so that broadcasts never go backward.
func (e *Engine) stampVersion(docID types.ID, version int) int {
	return e.relayed.Upsert(docID, func(last int, exists bool) int {
		if exists && last > version {
			return last
		}
		return version
	})
}

func (e *Engine) moveCursor(ctx context.Context, sess gateway.Session, ev *events.CursorMovePayload) {
	me, ok := e.roomMember(ctx, sess, ev.DocumentID)
	if !ok {
		return
	}

	e.broadcast(ctx, ev.DocumentID, events.CursorMoved, &events.CursorMovedPayload{
		DocumentID: ev.DocumentID,
		UserID:     me.UserID,
		Username:   me.Username,
		Position:   ev.Position,
	}, sess.ConnID)
}

func (e *Engine) lock(ctx context.Context, sess gateway.Session, ev *events.LockDocumentPayload) {
	me, ok := e.roomMember(ctx, sess, ev.DocumentID)
	if !ok {
		return
	}

	e.locks.Set(ev.DocumentID, me)
	e.broadcast(ctx, ev.DocumentID, events.DocumentLocked, &events.UserPayload{
		DocumentID: ev.DocumentID,
		UserID:     me.UserID,
		Username:   me.Username,
	}, sess.ConnID)
	e.produceDocument(ev.DocumentID, messagebroker.DocumentLockedEvent, me.UserID, 0)
}

func (e *Engine) unlock(ctx context.Context, sess gateway.Session, ev *events.UnlockDocumentPayload) {
	me, ok := e.roomMember(ctx, sess, ev.DocumentID)
	if !ok {
		return
	}

	e.locks.Delete(ev.DocumentID, func(_ types.Member, exists bool) bool {
		return exists
	})
	e.broadcast(ctx, ev.DocumentID, events.DocumentUnlocked, &events.UserPayload{
		DocumentID: ev.DocumentID,
		UserID:     me.UserID,
		Username:   me.Username,
	}, sess.ConnID)
	e.produceDocument(ev.DocumentID, messagebroker.DocumentUnlockedEvent, me.UserID, 0)
}

func (e *Engine) leave(ctx context.Context, sess gateway.Session, ev *events.LeaveDocumentPayload) {
	docID := ev.DocumentID
	e.transport.LeaveRoom(sess.ConnID, docID)
	if sess.Identity.IsAnonymous() {
		return
	}

	me := e.member(sess)
	if e.be.Presence.RemoveFromRoom(docID, me.UserID, sess.ConnID) {
		e.announceDeparture(ctx, sess, docID, me)
	}
}

// announceDeparture tells the remaining members of the room that the user
// left, and releases the lock the user held.
func (e *Engine) announceDeparture(ctx context.Context, sess gateway.Session, docID types.ID, who types.Member) {
	e.broadcast(ctx, docID, events.UserLeft, &events.UserPayload{
		DocumentID: docID,
		UserID:     who.UserID,
		Username:   who.Username,
	}, sess.ConnID)
	e.producePresence(docID, messagebroker.UserLeftEvent, who.UserID)

	released := e.locks.Delete(docID, func(holder types.Member, exists bool) bool {
		return exists && holder.UserID == who.UserID
	})
	if released {
		e.broadcast(ctx, docID, events.DocumentUnlocked, &events.UserPayload{
			DocumentID: docID,
			UserID:     who.UserID,
			Username:   who.Username,
		}, sess.ConnID)
		e.produceDocument(docID, messagebroker.DocumentUnlockedEvent, who.UserID, 0)
	}
}

func (e *Engine) send(ctx context.Context, sess gateway.Session, name events.Name, payload interface{}) {
	if err := e.transport.SendToConnection(sess.ConnID, name, payload); err != nil {
		logging.From(ctx).Errorf("SYNC: send %s: %v", name, err)
	}
}

func (e *Engine) broadcast(
	ctx context.Context,
	docID types.ID,
	name events.Name,
	payload interface{},
	excludeConnID string,
) {
	if err := e.transport.BroadcastToRoom(ctx, docID, name, payload, excludeConnID); err != nil {
		logging.From(ctx).Errorf("SYNC: broadcast %s to %s: %v", name, docID, err)
	}
}

// sendError reports a failure to the session. Not found, permission and
// identity failures get their own message; the others get fallback.
func (e *Engine) sendError(ctx context.Context, sess gateway.Session, docID types.ID, fallback string, err error) {
	message := fallback
	switch errors.StatusOf(err) {
	case errors.ErrCodeNotFound:
		message = MessageDocumentNotFound
	case errors.ErrCodePermissionDenied:
		message = MessagePermissionDenied
	case errors.ErrCodeUnauthenticated:
		message = MessageUnauthenticated
	}

	e.send(ctx, sess, events.DocumentError, &events.DocumentErrorPayload{
		DocumentID: docID,
		Message:    message,
		Code:       errors.CodeOf(err),
	})
}

func (e *Engine) produceDocument(docID types.ID, eventType messagebroker.DocumentEventType, userID string, version int) {
	e.produce(e.be.MsgBroker.DocumentEvents(), messagebroker.DocumentEventMessage{
		DocumentID: docID,
		EventType:  eventType,
		UserID:     userID,
		Version:    version,
		Hostname:   e.be.Config.Hostname,
		Timestamp:  time.Now(),
	}, string(eventType))
}

func (e *Engine) producePresence(docID types.ID, eventType messagebroker.PresenceEventType, userID string) {
	e.produce(e.be.MsgBroker.PresenceEvents(), messagebroker.PresenceEventMessage{
		DocumentID: docID,
		EventType:  eventType,
		UserID:     userID,
		Hostname:   e.be.Config.Hostname,
		Timestamp:  time.Now(),
	}, string(eventType))
}

// produce exports the message off the event path.
func (e *Engine) produce(broker messagebroker.Broker, msg messagebroker.Message, eventType string) {
	if !messagebroker.Enabled(broker) {
		return
	}

	e.be.Background.AttachGoroutine(func(ctx context.Context) {
		if err := broker.Produce(ctx, msg); err != nil {
			logging.From(ctx).Warnf("SYNC: produce %s: %v", eventType, err)
		}
	}, "broker.produce")
}
