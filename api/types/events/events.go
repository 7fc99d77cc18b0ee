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

// Package events defines the realtime wire protocol: the names of the events
// exchanged over a session and the fixed schema of each payload.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/internal/validation"
	"github.com/inkwell-team/inkwell/pkg/errors"
)

// Name is the name of an event on the wire.
type Name string

// Events sent by clients.
const (
	JoinDocument   Name = "join-document"
	GetDocument    Name = "get-document"
	DocumentChange Name = "document-change"
	CursorMove     Name = "cursor-move"
	LockDocument   Name = "lock-document"
	UnlockDocument Name = "unlock-document"
	LeaveDocument  Name = "leave-document"
)

// Events sent by the server.
const (
	UserJoined       Name = "user-joined"
	DocumentUsers    Name = "document-users"
	LoadDocument     Name = "load-document"
	DocumentError    Name = "document-error"
	DocumentChanged  Name = "document-changed"
	CursorMoved      Name = "cursor-moved"
	DocumentLocked   Name = "document-locked"
	DocumentUnlocked Name = "document-unlocked"
	UserLeft         Name = "user-left"
)

var (
	// ErrMalformedEvent is returned when a frame is not a valid envelope.
	ErrMalformedEvent = errors.InvalidArgument("malformed event").WithCode("ErrMalformedEvent")

	// ErrUnknownEvent is returned for event names outside the protocol.
	ErrUnknownEvent = errors.InvalidArgument("unknown event").WithCode("ErrUnknownEvent")

	// ErrInvalidPayload is returned when a payload violates its schema.
	ErrInvalidPayload = errors.InvalidArgument("invalid payload").WithCode("ErrInvalidPayload")
)

// Envelope is the frame carried by every message in both directions.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a decoded client event.
type Inbound interface {
	EventName() Name
	Document() types.ID
}

// Decode parses a frame into its typed payload and validates it.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", err, ErrMalformedEvent)
	}

	var in Inbound
	switch env.Event {
	case JoinDocument:
		in = &JoinDocumentPayload{}
	case GetDocument:
		in = &GetDocumentPayload{}
	case DocumentChange:
		in = &DocumentChangePayload{}
	case CursorMove:
		in = &CursorMovePayload{}
	case LockDocument:
		in = &LockDocumentPayload{}
	case UnlockDocument:
		in = &UnlockDocumentPayload{}
	case LeaveDocument:
		in = &LeaveDocumentPayload{}
	case "":
		return nil, fmt.Errorf("missing event name: %w", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%q: %w", env.Event, ErrUnknownEvent)
	}

	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%s without data: %w", env.Event, ErrInvalidPayload)
	}
	if err := json.Unmarshal(env.Data, in); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", env.Event, err, ErrInvalidPayload)
	}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", env.Event, err, ErrInvalidPayload)
	}

	return in, nil
}

// Encode builds the frame of a server event.
func Encode(name Name, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}

	frame, err := json.Marshal(Envelope{Event: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope %s: %w", name, err)
	}
	return frame, nil
}
