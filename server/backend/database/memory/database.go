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

// Package memory implements the database interface in process memory. It is
// used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/database"
)

// DB is an in-memory database.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{db: memDB}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// CreateDocInfo creates a document and its first version.
func (d *DB) CreateDocInfo(
	_ context.Context,
	fields *database.CreateDocFields,
) (*database.DocInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	now := time.Now()
	info := &database.DocInfo{
		ID:           newID(),
		Title:        fields.Title,
		Content:      fields.Content,
		Owner:        fields.Owner,
		Version:      1,
		LastModified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := txn.Insert(tblDocuments, info); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := txn.Insert(tblVersions, &database.VersionInfo{
		DocID:      info.ID,
		Seq:        1,
		Content:    fields.Content,
		Timestamp:  now,
		ModifiedBy: fields.Owner,
	}); err != nil {
		return nil, fmt.Errorf("create first version: %w", err)
	}

	txn.Commit()
	return info.DeepCopy(), nil
}

// FindDocInfoByID returns the document of the given id.
func (d *DB) FindDocInfoByID(_ context.Context, id types.ID) (*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	info, err := findDocInfo(txn, id)
	if err != nil {
		return nil, err
	}
	return info.DeepCopy(), nil
}

// FindDocInfosByOwner returns the documents owned by the user.
func (d *DB) FindDocInfosByOwner(_ context.Context, owner string) ([]*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblDocuments, "owner", owner)
	if err != nil {
		return nil, fmt.Errorf("find documents of %s: %w", owner, err)
	}

	var infos []*database.DocInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.DocInfo).DeepCopy())
	}
	sortByRecency(infos)
	return infos, nil
}

// FindDocInfosSharedWith returns the documents shared with the user.
func (d *DB) FindDocInfosSharedWith(_ context.Context, userID string) ([]*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblDocuments, "id")
	if err != nil {
		return nil, fmt.Errorf("find documents shared with %s: %w", userID, err)
	}

	var infos []*database.DocInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		info := raw.(*database.DocInfo)
		if info.Owner == userID {
			continue
		}
		if _, ok := info.PermissionOf(userID); ok {
			infos = append(infos, info.DeepCopy())
		}
	}
	sortByRecency(infos)
	return infos, nil
}

// AppendVersion writes the content and appends a version entry. memdb
// serializes write transactions, so concurrent appends never share a Seq.
func (d *DB) AppendVersion(
	_ context.Context,
	id types.ID,
	fields *database.VersionFields,
) (*database.DocInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findDocInfo(txn, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	info := found.DeepCopy()
	info.Content = fields.Content
	if fields.Title != nil {
		info.Title = *fields.Title
	}
	info.Version++
	info.LastModified = now
	info.UpdatedAt = now

	if err := txn.Insert(tblDocuments, info); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if err := txn.Insert(tblVersions, &database.VersionInfo{
		DocID:      id,
		Seq:        info.Version,
		Content:    fields.Content,
		Timestamp:  now,
		ModifiedBy: fields.ModifiedBy,
	}); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	txn.Commit()
	return info.DeepCopy(), nil
}

// UpsertShare grants the permission to the user.
func (d *DB) UpsertShare(
	_ context.Context,
	id types.ID,
	share database.ShareInfo,
) (*database.DocInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findDocInfo(txn, id)
	if err != nil {
		return nil, err
	}

	info := found.DeepCopy()
	replaced := false
	for i := range info.SharedWith {
		if info.SharedWith[i].UserID == share.UserID {
			info.SharedWith[i].Permission = share.Permission
			replaced = true
			break
		}
	}
	if !replaced {
		info.SharedWith = append(info.SharedWith, share)
	}
	info.UpdatedAt = time.Now()

	if err := txn.Insert(tblDocuments, info); err != nil {
		return nil, fmt.Errorf("update share: %w", err)
	}

	txn.Commit()
	return info.DeepCopy(), nil
}

// FindVersionInfos returns the version history of the document.
func (d *DB) FindVersionInfos(_ context.Context, id types.ID) ([]*database.VersionInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	if _, err := findDocInfo(txn, id); err != nil {
		return nil, err
	}

	iter, err := txn.Get(tblVersions, "doc_id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find versions of %s: %w", id, err)
	}

	var infos []*database.VersionInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.VersionInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Seq < infos[j].Seq
	})
	return infos, nil
}

// DeleteDocInfo deletes the document and its history.
func (d *DB) DeleteDocInfo(_ context.Context, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info, err := findDocInfo(txn, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(tblDocuments, info); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if _, err := txn.DeleteAll(tblVersions, "doc_id", id.String()); err != nil {
		return fmt.Errorf("delete versions of %s: %w", id, err)
	}

	txn.Commit()
	return nil
}

func findDocInfo(txn *memdb.Txn, id types.ID) (*database.DocInfo, error) {
	raw, err := txn.First(tblDocuments, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrDocumentNotFound)
	}
	return raw.(*database.DocInfo), nil
}

func sortByRecency(infos []*database.DocInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
}

func newID() types.ID {
	return types.ID(primitive.NewObjectID().Hex())
}
