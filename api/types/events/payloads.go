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

package events

import (
	"encoding/json"

	"github.com/inkwell-team/inkwell/api/types"
)

// JoinDocumentPayload asks to join a document room. The user fields are
// informational; the identity bound at handshake is authoritative.
type JoinDocumentPayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
}

// EventName returns the wire name of the payload.
func (p *JoinDocumentPayload) EventName() Name { return JoinDocument }

// Document returns the target document.
func (p *JoinDocumentPayload) Document() types.ID { return p.DocumentID }

// GetDocumentPayload asks for the current state of a document.
type GetDocumentPayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
}

// EventName returns the wire name of the payload.
func (p *GetDocumentPayload) EventName() Name { return GetDocument }

// Document returns the target document.
func (p *GetDocumentPayload) Document() types.ID { return p.DocumentID }

// Changes is a full snapshot of the edited fields. Content must be present,
// an empty string clears the body. A nil Title leaves the stored title
// untouched.
type Changes struct {
	Content *string `json:"content" validate:"required"`
	Title   *string `json:"title,omitempty"`
}

// DocumentChangePayload carries an edit. Version is the last version the
// client had observed.
type DocumentChangePayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
	Changes    Changes  `json:"changes"`
	Version    int      `json:"version" validate:"min=0"`
}

// EventName returns the wire name of the payload.
func (p *DocumentChangePayload) EventName() Name { return DocumentChange }

// Document returns the target document.
func (p *DocumentChangePayload) Document() types.ID { return p.DocumentID }

// CursorMovePayload carries an opaque cursor position.
type CursorMovePayload struct {
	DocumentID types.ID        `json:"documentId" validate:"required,document_id,max=128"`
	Position   json.RawMessage `json:"position" validate:"required"`
}

// EventName returns the wire name of the payload.
func (p *CursorMovePayload) EventName() Name { return CursorMove }

// Document returns the target document.
func (p *CursorMovePayload) Document() types.ID { return p.DocumentID }

// LockDocumentPayload sets the advisory lock of a document.
type LockDocumentPayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
}

// EventName returns the wire name of the payload.
func (p *LockDocumentPayload) EventName() Name { return LockDocument }

// Document returns the target document.
func (p *LockDocumentPayload) Document() types.ID { return p.DocumentID }

// UnlockDocumentPayload clears the advisory lock of a document.
type UnlockDocumentPayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
}

// EventName returns the wire name of the payload.
func (p *UnlockDocumentPayload) EventName() Name { return UnlockDocument }

// Document returns the target document.
func (p *UnlockDocumentPayload) Document() types.ID { return p.DocumentID }

// LeaveDocumentPayload leaves a document room.
type LeaveDocumentPayload struct {
	DocumentID types.ID `json:"documentId" validate:"required,document_id,max=128"`
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
}

// EventName returns the wire name of the payload.
func (p *LeaveDocumentPayload) EventName() Name { return LeaveDocument }

// Document returns the target document.
func (p *LeaveDocumentPayload) Document() types.ID { return p.DocumentID }

// UserPayload announces a user joining or leaving a room, and the holder of
// an advisory lock.
type UserPayload struct {
	DocumentID types.ID `json:"documentId"`
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
}

// LoadDocumentPayload is the state of a document sent to its requester.
type LoadDocumentPayload struct {
	DocumentID types.ID `json:"documentId"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Version    int      `json:"version"`
}

// DocumentErrorPayload reports a failed operation to its requester only.
type DocumentErrorPayload struct {
	DocumentID types.ID `json:"documentId,omitempty"`
	Message    string   `json:"message"`
	Code       string   `json:"code,omitempty"`
}

// DocumentChangedPayload relays an edit to the other members of a room.
type DocumentChangedPayload struct {
	DocumentID types.ID `json:"documentId"`
	Changes    Changes  `json:"changes"`
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
	Version    int      `json:"version"`
}

// CursorMovedPayload relays a cursor position to the other members of a room.
type CursorMovedPayload struct {
	DocumentID types.ID        `json:"documentId"`
	UserID     string          `json:"userId"`
	Username   string          `json:"username"`
	Position   json.RawMessage `json:"position"`
}
