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

package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/internal/validation"
	"github.com/inkwell-team/inkwell/internal/version"
	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/auth"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/documents"
)

var (
	// ErrInvalidDocumentID is returned when the path names an invalid id.
	ErrInvalidDocumentID = errors.InvalidArgument("invalid document id").WithCode("ErrInvalidDocumentID")

	// ErrInvalidBody is returned when the request body cannot be decoded or
	// violates its schema.
	ErrInvalidBody = errors.InvalidArgument("invalid request body").WithCode("ErrInvalidBody")
)

// CreateNoteRequest is the body of POST /api/notes.
type CreateNoteRequest struct {
	Title   string `json:"title" validate:"max=256"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the body of PUT /api/notes/{id}. A missing title
// keeps the stored one.
type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=256"`
	Content *string `json:"content" validate:"required"`
}

// ShareNoteRequest is the body of POST /api/notes/{id}/share.
type ShareNoteRequest struct {
	UserID     string           `json:"userId" validate:"required"`
	Permission types.Permission `json:"permission" validate:"required,permission"`
}

// MessageResponse is the body of requests that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type notesHandler struct {
	be              *backend.Backend
	maxRequestBytes int64
}

func (h *notesHandler) decode(w http.ResponseWriter, r *http.Request, body interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidBody)
	}
	if err := validation.ValidateStruct(body); err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidBody)
	}
	return nil
}

func documentIDOf(r *http.Request) (types.ID, error) {
	id := types.ID(mux.Vars(r)["id"])
	if err := id.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", err, ErrInvalidDocumentID)
	}
	return id, nil
}

func (h *notesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	info, err := documents.Create(r.Context(), h.be, identity.UserID, req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info.ToDocument())
}

func (h *notesHandler) list(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromCtx(r.Context())
	list, err := documents.List(r.Context(), h.be, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *notesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	info, err := documents.Get(r.Context(), h.be, id, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info.ToDocument())
}

func (h *notesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateNoteRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	info, err := documents.Update(r.Context(), h.be, id, identity.UserID, *req.Content, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info.ToDocument())
}

func (h *notesHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	if err := documents.Delete(r.Context(), h.be, id, identity.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}

func (h *notesHandler) share(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ShareNoteRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	info, err := documents.Share(r.Context(), h.be, id, identity.UserID, types.Share{
		UserID:     req.UserID,
		Permission: req.Permission,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info.ToDocument())
}

func (h *notesHandler) versions(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	versions, err := documents.Versions(r.Context(), h.be, id, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, versions)
}

func (h *notesHandler) users(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFromCtx(r.Context())
	users, err := documents.ActiveUsers(r.Context(), h.be, id, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Version: version.Version})
}
