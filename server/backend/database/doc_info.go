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

package database

import (
	"time"

	"github.com/inkwell-team/inkwell/api/types"
)

// CreateDocFields are the fields of a new document.
type CreateDocFields struct {
	Owner   string
	Title   string
	Content string
}

// VersionFields describe one content write.
type VersionFields struct {
	Content string

	// Title replaces the stored title when it is not nil.
	Title *string

	ModifiedBy string
}

// ShareInfo grants a user a permission on a document.
type ShareInfo struct {
	UserID     string           `bson:"user_id"`
	Permission types.Permission `bson:"permission"`
}

// DocInfo is the stored state of a document, without its version history.
type DocInfo struct {
	// ID is the unique id of the document.
	ID types.ID `bson:"_id"`

	// Title is the display title.
	Title string `bson:"title"`

	// Content is the latest content. It is opaque to the server.
	Content string `bson:"content"`

	// Owner is the user id of the creator.
	Owner string `bson:"owner"`

	// SharedWith holds at most one grant per user.
	SharedWith []ShareInfo `bson:"shared_with"`

	// Version is the number of entries in the version history.
	Version int `bson:"version"`

	// LastModified is the time of the last content write.
	LastModified time.Time `bson:"last_modified"`

	// CreatedAt is the time when the document was created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time of the last change of any field.
	UpdatedAt time.Time `bson:"updated_at"`
}

// PermissionOf returns the permission the user holds on this document. The
// owner holds write.
func (i *DocInfo) PermissionOf(userID string) (types.Permission, bool) {
	if userID == "" {
		return "", false
	}
	if i.Owner == userID {
		return types.PermWrite, true
	}
	for _, share := range i.SharedWith {
		if share.UserID == userID {
			return share.Permission, true
		}
	}
	return "", false
}

// DeepCopy returns a copy that shares no memory with this DocInfo.
func (i *DocInfo) DeepCopy() *DocInfo {
	if i == nil {
		return nil
	}

	clone := *i
	if i.SharedWith != nil {
		clone.SharedWith = make([]ShareInfo, len(i.SharedWith))
		copy(clone.SharedWith, i.SharedWith)
	}
	return &clone
}

// ToDocument converts this DocInfo into its client representation.
func (i *DocInfo) ToDocument() *types.Document {
	shares := make([]types.Share, 0, len(i.SharedWith))
	for _, share := range i.SharedWith {
		shares = append(shares, types.Share{UserID: share.UserID, Permission: share.Permission})
	}

	return &types.Document{
		ID:           i.ID,
		Title:        i.Title,
		Content:      i.Content,
		Owner:        i.Owner,
		SharedWith:   shares,
		Version:      i.Version,
		LastModified: i.LastModified,
		CreatedAt:    i.CreatedAt,
	}
}

// ToSummary converts this DocInfo into its listing representation.
func (i *DocInfo) ToSummary() types.DocumentSummary {
	return types.DocumentSummary{
		ID:           i.ID,
		Title:        i.Title,
		Owner:        i.Owner,
		Version:      i.Version,
		LastModified: i.LastModified,
	}
}

// VersionInfo is one entry of a version history. Seq starts at 1.
type VersionInfo struct {
	DocID      types.ID  `bson:"-"`
	Seq        int       `bson:"-"`
	Content    string    `bson:"content"`
	Timestamp  time.Time `bson:"timestamp"`
	ModifiedBy string    `bson:"modified_by"`
}

// DeepCopy returns a copy of this VersionInfo.
func (i *VersionInfo) DeepCopy() *VersionInfo {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// ToVersionInfo converts this entry into its client representation.
func (i *VersionInfo) ToVersionInfo() types.VersionInfo {
	return types.VersionInfo{
		Version:    i.Seq,
		Content:    i.Content,
		Timestamp:  i.Timestamp,
		ModifiedBy: i.ModifiedBy,
	}
}
