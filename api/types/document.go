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

package types

import (
	"time"
)

// DefaultDocumentTitle is the title given to documents created without one.
const DefaultDocumentTitle = "Untitled Document"

// Share grants a user a permission on a document.
type Share struct {
	UserID     string     `json:"userId"`
	Permission Permission `json:"permission"`
}

// Document is the representation of a document returned to clients.
type Document struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Owner        string    `json:"owner"`
	SharedWith   []Share   `json:"sharedWith"`
	Version      int       `json:"version"`
	LastModified time.Time `json:"lastModified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DocumentSummary is the listing form of a document, without its content.
type DocumentSummary struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	Owner        string    `json:"owner"`
	Version      int       `json:"version"`
	LastModified time.Time `json:"lastModified"`
}

// DocumentList partitions the documents visible to a user.
type DocumentList struct {
	Owned  []DocumentSummary `json:"owned"`
	Shared []DocumentSummary `json:"shared"`
}

// VersionInfo is one entry of a document's version history.
type VersionInfo struct {
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	ModifiedBy string    `json:"modifiedBy"`
}
