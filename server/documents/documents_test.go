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

package documents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/test/helper"
)

func TestDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("create with default title test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "  ", "")
		require.NoError(t, err)
		assert.Equal(t, types.DefaultDocumentTitle, info.Title)
		assert.Equal(t, 1, info.Version)

		versions, err := documents.Versions(ctx, be, info.ID, "alice")
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, "alice", versions[0].ModifiedBy)
	})

	t.Run("access rules test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "Plan", "draft")
		require.NoError(t, err)

		assert.NoError(t, documents.CheckAccess(ctx, be, info.ID, "alice", types.PermWrite))
		assert.ErrorIs(t, documents.CheckAccess(ctx, be, info.ID, "bob", types.PermRead), documents.ErrPermissionDenied)
		assert.ErrorIs(t, documents.CheckAccess(ctx, be, info.ID, "", types.PermRead), documents.ErrPermissionDenied)

		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: types.PermRead})
		require.NoError(t, err)
		assert.NoError(t, documents.CheckAccess(ctx, be, info.ID, "bob", types.PermRead))
		assert.ErrorIs(t, documents.CheckAccess(ctx, be, info.ID, "bob", types.PermWrite), documents.ErrPermissionDenied)

		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: types.PermWrite})
		require.NoError(t, err)
		assert.NoError(t, documents.CheckAccess(ctx, be, info.ID, "bob", types.PermWrite))

		err = documents.CheckAccess(ctx, be, "missing", "alice", types.PermRead)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})

	t.Run("share rules test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "Plan", "")
		require.NoError(t, err)

		_, err = documents.Share(ctx, be, info.ID, "bob", types.Share{UserID: "carol", Permission: types.PermRead})
		assert.ErrorIs(t, err, documents.ErrNotOwner)

		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: "admin"})
		assert.ErrorIs(t, err, documents.ErrInvalidPermission)

		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "alice", Permission: types.PermRead})
		assert.ErrorIs(t, err, documents.ErrInvalidShareTarget)

		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: types.PermRead})
		require.NoError(t, err)
		shared, err := documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: types.PermWrite})
		require.NoError(t, err)
		require.Len(t, shared.SharedWith, 1)
		assert.Equal(t, types.PermWrite, shared.SharedWith[0].Permission)
	})

	t.Run("update appends a version test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "Plan", "v1")
		require.NoError(t, err)

		title := "Renamed"
		updated, err := documents.Update(ctx, be, info.ID, "alice", "v2", &title)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, "v2", updated.Content)
		assert.Equal(t, "Renamed", updated.Title)

		_, err = documents.Update(ctx, be, info.ID, "bob", "v3", nil)
		assert.True(t, errors.IsStatus(err, errors.ErrCodePermissionDenied))

		versions, err := documents.Versions(ctx, be, info.ID, "alice")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "v1", versions[0].Content)
		assert.Equal(t, "v2", versions[1].Content)
		assert.Equal(t, 2, versions[1].Version)
	})

	t.Run("list owned and shared test", func(t *testing.T) {
		be := helper.TestBackend(t)

		mine, err := documents.Create(ctx, be, "alice", "Mine", "")
		require.NoError(t, err)
		theirs, err := documents.Create(ctx, be, "bob", "Theirs", "")
		require.NoError(t, err)
		_, err = documents.Share(ctx, be, theirs.ID, "bob", types.Share{UserID: "alice", Permission: types.PermRead})
		require.NoError(t, err)

		list, err := documents.List(ctx, be, "alice")
		require.NoError(t, err)
		require.Len(t, list.Owned, 1)
		require.Len(t, list.Shared, 1)
		assert.Equal(t, mine.ID, list.Owned[0].ID)
		assert.Equal(t, theirs.ID, list.Shared[0].ID)

		list, err = documents.List(ctx, be, "carol")
		require.NoError(t, err)
		assert.Empty(t, list.Owned)
		assert.Empty(t, list.Shared)
	})

	t.Run("delete invalidates access test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "Plan", "")
		require.NoError(t, err)
		_, err = documents.Share(ctx, be, info.ID, "alice", types.Share{UserID: "bob", Permission: types.PermWrite})
		require.NoError(t, err)
		require.NoError(t, documents.CheckAccess(ctx, be, info.ID, "bob", types.PermWrite))

		assert.ErrorIs(t, documents.Delete(ctx, be, info.ID, "bob"), documents.ErrNotOwner)
		require.NoError(t, documents.Delete(ctx, be, info.ID, "alice"))

		err = documents.CheckAccess(ctx, be, info.ID, "bob", types.PermWrite)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		_, err = documents.Get(ctx, be, info.ID, "alice")
		assert.True(t, errors.IsStatus(err, errors.ErrCodeNotFound))
	})

	t.Run("active users test", func(t *testing.T) {
		be := helper.TestBackend(t)

		info, err := documents.Create(ctx, be, "alice", "Plan", "")
		require.NoError(t, err)

		be.Presence.Register("c1", types.Identity{UserID: "alice", Username: "Alice"})
		be.Presence.AddToRoom(info.ID, "alice", "c1")

		users, err := documents.ActiveUsers(ctx, be, info.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, []types.Member{{UserID: "alice", Username: "Alice"}}, users)

		_, err = documents.ActiveUsers(ctx, be, info.ID, "mallory")
		assert.ErrorIs(t, err, documents.ErrPermissionDenied)
	})
}
