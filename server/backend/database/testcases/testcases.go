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

// Package testcases contains the behavior every database implementation must
// share. memory and mongo run the same cases against their own Database.
package testcases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/database"
)

// uniqueUser returns a user id that no earlier run has used, so that the
// cases can run against a database that outlives the test.
func uniqueUser(t *testing.T, role string) string {
	return fmt.Sprintf("%s-%s-%d", t.Name(), role, time.Now().UnixNano())
}

func createDoc(t *testing.T, db database.Database, owner, title string) *database.DocInfo {
	info, err := db.CreateDocInfo(context.Background(), &database.CreateDocFields{
		Owner:   owner,
		Title:   title,
		Content: "",
	})
	require.NoError(t, err)
	return info
}

// RunCreateAndFindDocInfoTest runs the create and find tests for the given db.
func RunCreateAndFindDocInfoTest(t *testing.T, db database.Database) {
	t.Run("create and find docInfo test", func(t *testing.T) {
		ctx := context.Background()
		owner := t.Name() + "-owner"

		info, err := db.CreateDocInfo(ctx, &database.CreateDocFields{
			Owner:   owner,
			Title:   types.DefaultDocumentTitle,
			Content: "<p>draft</p>",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, 1, info.Version)

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, info.ID, found.ID)
		assert.Equal(t, owner, found.Owner)
		assert.Equal(t, "<p>draft</p>", found.Content)
		assert.Equal(t, types.DefaultDocumentTitle, found.Title)

		versions, err := db.FindVersionInfos(ctx, info.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, owner, versions[0].ModifiedBy)
		assert.Equal(t, 1, versions[0].Seq)
	})

	t.Run("find missing docInfo test", func(t *testing.T) {
		ctx := context.Background()

		_, err := db.FindDocInfoByID(ctx, types.ID("000000000000000000000000"))
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		_, err = db.FindVersionInfos(ctx, types.ID("000000000000000000000000"))
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		_, err = db.AppendVersion(ctx, types.ID("000000000000000000000000"), &database.VersionFields{
			Content:    "x",
			ModifiedBy: "A",
		})
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		assert.ErrorIs(t, db.DeleteDocInfo(ctx, "000000000000000000000000"), database.ErrDocumentNotFound)
	})
}

// RunAppendVersionTest runs the AppendVersion tests for the given db.
func RunAppendVersionTest(t *testing.T, db database.Database) {
	t.Run("append version test", func(t *testing.T) {
		ctx := context.Background()
		info := createDoc(t, db, t.Name(), "Notes")

		updated, err := db.AppendVersion(ctx, info.ID, &database.VersionFields{
			Content:    "Hello",
			ModifiedBy: "B",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, "Hello", updated.Content)
		assert.Equal(t, "Notes", updated.Title)

		title := "Renamed"
		updated, err = db.AppendVersion(ctx, info.ID, &database.VersionFields{
			Content:    "Hello, world",
			Title:      &title,
			ModifiedBy: "A",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Version)
		assert.Equal(t, "Renamed", updated.Title)

		versions, err := db.FindVersionInfos(ctx, info.ID)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.Equal(t, "Hello", versions[1].Content)
		assert.Equal(t, "B", versions[1].ModifiedBy)
		assert.Equal(t, "Hello, world", versions[2].Content)
		assert.Equal(t, 3, versions[2].Seq)

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, versions[2].Content, found.Content)
		assert.Equal(t, len(versions), found.Version)
	})

	t.Run("concurrent append version test", func(t *testing.T) {
		ctx := context.Background()
		info := createDoc(t, db, t.Name(), "Race")

		const writers = 20
		wg := sync.WaitGroup{}
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := db.AppendVersion(ctx, info.ID, &database.VersionFields{
					Content:    fmt.Sprintf("content-%d", i),
					ModifiedBy: fmt.Sprintf("user-%d", i),
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		versions, err := db.FindVersionInfos(ctx, info.ID)
		require.NoError(t, err)
		assert.Len(t, versions, writers+1)

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, writers+1, found.Version)
		assert.Equal(t, versions[len(versions)-1].Content, found.Content)
	})
}

// RunListDocInfosTest runs the owned and shared listing tests for the given db.
func RunListDocInfosTest(t *testing.T, db database.Database) {
	t.Run("list owned docInfos by recency test", func(t *testing.T) {
		ctx := context.Background()
		owner := uniqueUser(t, "owner")

		first := createDoc(t, db, owner, "first")
		time.Sleep(5 * time.Millisecond)
		second := createDoc(t, db, owner, "second")
		createDoc(t, db, owner+"-other", "other")

		infos, err := db.FindDocInfosByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, second.ID, infos[0].ID)
		assert.Equal(t, first.ID, infos[1].ID)

		time.Sleep(5 * time.Millisecond)
		_, err = db.AppendVersion(ctx, first.ID, &database.VersionFields{Content: "touch", ModifiedBy: owner})
		require.NoError(t, err)

		infos, err = db.FindDocInfosByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, first.ID, infos[0].ID)
	})

	t.Run("list shared docInfos test", func(t *testing.T) {
		ctx := context.Background()
		owner := uniqueUser(t, "owner")
		guest := uniqueUser(t, "guest")

		shared := createDoc(t, db, owner, "shared")
		createDoc(t, db, owner, "private")

		infos, err := db.FindDocInfosSharedWith(ctx, guest)
		require.NoError(t, err)
		assert.Len(t, infos, 0)

		_, err = db.UpsertShare(ctx, shared.ID, database.ShareInfo{UserID: guest, Permission: types.PermRead})
		require.NoError(t, err)

		infos, err = db.FindDocInfosSharedWith(ctx, guest)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, shared.ID, infos[0].ID)
	})
}

// RunUpsertShareTest runs the UpsertShare tests for the given db.
func RunUpsertShareTest(t *testing.T, db database.Database) {
	t.Run("upsert share test", func(t *testing.T) {
		ctx := context.Background()
		info := createDoc(t, db, t.Name(), "shared")

		updated, err := db.UpsertShare(ctx, info.ID, database.ShareInfo{UserID: "B", Permission: types.PermRead})
		require.NoError(t, err)
		require.Len(t, updated.SharedWith, 1)

		updated, err = db.UpsertShare(ctx, info.ID, database.ShareInfo{UserID: "B", Permission: types.PermWrite})
		require.NoError(t, err)
		require.Len(t, updated.SharedWith, 1)
		assert.Equal(t, types.PermWrite, updated.SharedWith[0].Permission)

		updated, err = db.UpsertShare(ctx, info.ID, database.ShareInfo{UserID: "C", Permission: types.PermRead})
		require.NoError(t, err)
		assert.Len(t, updated.SharedWith, 2)

		perm, ok := updated.PermissionOf("B")
		assert.True(t, ok)
		assert.Equal(t, types.PermWrite, perm)

		_, err = db.UpsertShare(ctx, "000000000000000000000000", database.ShareInfo{UserID: "B", Permission: types.PermRead})
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})
}

// RunDeleteDocInfoTest runs the DeleteDocInfo tests for the given db.
func RunDeleteDocInfoTest(t *testing.T, db database.Database) {
	t.Run("delete docInfo test", func(t *testing.T) {
		ctx := context.Background()
		owner := uniqueUser(t, "owner")
		info := createDoc(t, db, owner, "doomed")

		require.NoError(t, db.DeleteDocInfo(ctx, info.ID))

		_, err := db.FindDocInfoByID(ctx, info.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
		_, err = db.FindVersionInfos(ctx, info.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		infos, err := db.FindDocInfosByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, infos, 0)
	})
}
