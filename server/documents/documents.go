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

// Package documents provides the document operations shared by the REST API
// and the sync engine, with the access rules that guard them.
package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/cache"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/backend/sync"
)

var (
	// ErrPermissionDenied is returned when the user lacks the permission the
	// operation requires.
	ErrPermissionDenied = errors.PermissionDenied("permission denied").WithCode("ErrPermissionDenied")

	// ErrNotOwner is returned when an owner-only operation is requested by
	// someone else.
	ErrNotOwner = errors.PermissionDenied("only the owner can do this").WithCode("ErrNotOwner")

	// ErrInvalidPermission is returned when a share names an unknown
	// permission.
	ErrInvalidPermission = errors.InvalidArgument("permission must be read or write").WithCode("ErrInvalidPermission")

	// ErrInvalidShareTarget is returned when a share names no user or the
	// owner.
	ErrInvalidShareTarget = errors.InvalidArgument("invalid share target").WithCode("ErrInvalidShareTarget")
)

// LockKey returns the key that serializes the writes to the document.
func LockKey(id types.ID) sync.Key {
	return sync.NewKey(fmt.Sprintf("document-%s", id))
}

func accessTableOf(info *database.DocInfo) *cache.AccessTable {
	table := &cache.AccessTable{
		Owner:  info.Owner,
		Shares: make(map[string]types.Permission, len(info.SharedWith)),
	}
	for _, share := range info.SharedWith {
		table.Shares[share.UserID] = share.Permission
	}
	return table
}

// CheckAccess returns nil if the user holds the required permission on the
// document. Access tables are read through the access cache.
func CheckAccess(
	ctx context.Context,
	be *backend.Backend,
	id types.ID,
	userID string,
	required types.Permission,
) error {
	table, ok := be.Cache.GetAccess(id)
	if !ok {
		info, err := be.DB.FindDocInfoByID(ctx, id)
		if err != nil {
			return err
		}
		table = accessTableOf(info)
		be.Cache.PutAccess(id, table)
	}

	perm, ok := table.PermissionOf(userID)
	if !ok || !perm.Allows(required) {
		return fmt.Errorf("%s %s on %s: %w", userID, required, id, ErrPermissionDenied)
	}
	return nil
}

// Create creates a document owned by the user. An empty title becomes
// types.DefaultDocumentTitle.
func Create(
	ctx context.Context,
	be *backend.Backend,
	owner string,
	title string,
	content string,
) (*database.DocInfo, error) {
	if owner == "" {
		return nil, fmt.Errorf("create document: %w", ErrPermissionDenied)
	}
	if strings.TrimSpace(title) == "" {
		title = types.DefaultDocumentTitle
	}

	info, err := be.DB.CreateDocInfo(ctx, &database.CreateDocFields{
		Owner:   owner,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return nil, err
	}
	be.Cache.PutAccess(info.ID, accessTableOf(info))

	return info, nil
}

// List returns the documents the user owns and the ones shared with them.
func List(ctx context.Context, be *backend.Backend, userID string) (*types.DocumentList, error) {
	owned, err := be.DB.FindDocInfosByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := be.DB.FindDocInfosSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}

	list := &types.DocumentList{
		Owned:  make([]types.DocumentSummary, 0, len(owned)),
		Shared: make([]types.DocumentSummary, 0, len(shared)),
	}
	for _, info := range owned {
		list.Owned = append(list.Owned, info.ToSummary())
	}
	for _, info := range shared {
		list.Shared = append(list.Shared, info.ToSummary())
	}
	return list, nil
}

// Get returns the document if the user may read it. The access cache is
// refreshed from the loaded document.
func Get(ctx context.Context, be *backend.Backend, id types.ID, userID string) (*database.DocInfo, error) {
	info, err := be.DB.FindDocInfoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	be.Cache.PutAccess(id, accessTableOf(info))

	perm, ok := info.PermissionOf(userID)
	if !ok || !perm.Allows(types.PermRead) {
		return nil, fmt.Errorf("%s read on %s: %w", userID, id, ErrPermissionDenied)
	}
	return info, nil
}

// Save appends a version written by the user without checking access.
// Callers check write access first and hold the lock of LockKey.
func Save(
	ctx context.Context,
	be *backend.Backend,
	id types.ID,
	userID string,
	content string,
	title *string,
) (*database.DocInfo, error) {
	return be.DB.AppendVersion(ctx, id, &database.VersionFields{
		Content:    content,
		Title:      title,
		ModifiedBy: userID,
	})
}

// Update replaces the content of the document, and its title if given, on
// behalf of a user holding write access.
func Update(
	ctx context.Context,
	be *backend.Backend,
	id types.ID,
	userID string,
	content string,
	title *string,
) (*database.DocInfo, error) {
	if err := CheckAccess(ctx, be, id, userID, types.PermWrite); err != nil {
		return nil, err
	}

	locker := be.Lockers.Locker(LockKey(id))
	locker.Lock()
	defer func() {
		_ = locker.Unlock()
	}()

	return Save(ctx, be, id, userID, content, title)
}

// Delete deletes the document. Only the owner may delete it.
func Delete(ctx context.Context, be *backend.Backend, id types.ID, userID string) error {
	info, err := be.DB.FindDocInfoByID(ctx, id)
	if err != nil {
		return err
	}
	if info.Owner != userID {
		return fmt.Errorf("delete %s: %w", id, ErrNotOwner)
	}

	if err := be.DB.DeleteDocInfo(ctx, id); err != nil {
		return err
	}
	be.Cache.InvalidateAccess(id)
	return nil
}

// Share grants the target user the permission on the document, replacing
// any previous grant. Only the owner may share.
func Share(
	ctx context.Context,
	be *backend.Backend,
	id types.ID,
	userID string,
	share types.Share,
) (*database.DocInfo, error) {
	if !share.Permission.Valid() {
		return nil, fmt.Errorf("share %s with %q: %w", id, share.Permission, ErrInvalidPermission)
	}
	if share.UserID == "" {
		return nil, fmt.Errorf("share %s: %w", id, ErrInvalidShareTarget)
	}

	info, err := be.DB.FindDocInfoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Owner != userID {
		return nil, fmt.Errorf("share %s: %w", id, ErrNotOwner)
	}
	if share.UserID == info.Owner {
		return nil, fmt.Errorf("share %s with its owner: %w", id, ErrInvalidShareTarget)
	}

	updated, err := be.DB.UpsertShare(ctx, id, database.ShareInfo{
		UserID:     share.UserID,
		Permission: share.Permission,
	})
	if err != nil {
		return nil, err
	}
	be.Cache.InvalidateAccess(id)

	return updated, nil
}

// Versions returns the version history of the document, oldest first.
func Versions(ctx context.Context, be *backend.Backend, id types.ID, userID string) ([]types.VersionInfo, error) {
	if err := CheckAccess(ctx, be, id, userID, types.PermRead); err != nil {
		return nil, err
	}

	infos, err := be.DB.FindVersionInfos(ctx, id)
	if err != nil {
		return nil, err
	}

	versions := make([]types.VersionInfo, 0, len(infos))
	for _, info := range infos {
		versions = append(versions, info.ToVersionInfo())
	}
	return versions, nil
}

// ActiveUsers returns the users currently in the room of the document on
// this node, in join order.
func ActiveUsers(ctx context.Context, be *backend.Backend, id types.ID, userID string) ([]types.Member, error) {
	if err := CheckAccess(ctx, be, id, userID, types.PermRead); err != nil {
		return nil, err
	}
	return be.Presence.ListRoom(id), nil
}
