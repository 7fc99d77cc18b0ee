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

// Package database provides the persistence interface of documents and their
// version history, implemented by the memory and mongo packages.
package database

import (
	"context"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/pkg/errors"
)

var (
	// ErrDocumentNotFound is returned when the document cannot be found.
	ErrDocumentNotFound = errors.NotFound("document not found").WithCode("ErrDocumentNotFound")

	// ErrDocumentAlreadyExists is returned when a document id is taken.
	ErrDocumentAlreadyExists = errors.AlreadyExists("document already exists").WithCode("ErrDocumentAlreadyExists")

	// ErrPersistenceFailure is returned when the store rejects a write.
	ErrPersistenceFailure = errors.Internal("persistence failure").WithCode("ErrPersistenceFailure")
)

// Database stores documents, their collaborators and their version history.
type Database interface {
	// Close closes the database.
	Close() error

	// CreateDocInfo creates a document owned by fields.Owner and records its
	// initial content as the first version.
	CreateDocInfo(ctx context.Context, fields *CreateDocFields) (*DocInfo, error)

	// FindDocInfoByID returns the document of the given id.
	FindDocInfoByID(ctx context.Context, id types.ID) (*DocInfo, error)

	// FindDocInfosByOwner returns the documents owned by the user, most
	// recently updated first.
	FindDocInfosByOwner(ctx context.Context, owner string) ([]*DocInfo, error)

	// FindDocInfosSharedWith returns the documents shared with the user, most
	// recently updated first.
	FindDocInfosSharedWith(ctx context.Context, userID string) ([]*DocInfo, error)

	// AppendVersion replaces the content (and title, if given) of the document
	// and appends a version entry in one atomic step. It returns the document
	// as of after the append.
	AppendVersion(ctx context.Context, id types.ID, fields *VersionFields) (*DocInfo, error)

	// UpsertShare grants the permission to the user, replacing any previous
	// grant of the same user.
	UpsertShare(ctx context.Context, id types.ID, share ShareInfo) (*DocInfo, error)

	// FindVersionInfos returns the version history of the document, oldest
	// first.
	FindVersionInfos(ctx context.Context, id types.ID) ([]*VersionInfo, error)

	// DeleteDocInfo deletes the document and its history.
	DeleteDocInfo(ctx context.Context, id types.ID) error
}
