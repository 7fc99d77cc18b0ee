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

// Package mongo implements the database interface on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Client is a client that connects to MongoDB.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(conf.ConnectionURI).
		SetMonitor(NewQueryMonitor(conf.ParseSlowQueryThreshold()).CommandMonitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.InkwellDatabase)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.InkwellDatabase)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}
	return nil
}

// versionEntry is the embedded form of a version history entry.
type versionEntry struct {
	Content    string    `bson:"content"`
	Timestamp  time.Time `bson:"timestamp"`
	ModifiedBy string    `bson:"modified_by"`
}

// CreateDocInfo creates a document and its first version.
func (c *Client) CreateDocInfo(
	ctx context.Context,
	fields *database.CreateDocFields,
) (*database.DocInfo, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	info := &database.DocInfo{
		ID:           types.ID(primitive.NewObjectID().Hex()),
		Title:        fields.Title,
		Content:      fields.Content,
		Owner:        fields.Owner,
		SharedWith:   []database.ShareInfo{},
		Version:      1,
		LastModified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := c.collection(ColDocuments).InsertOne(ctx, bson.M{
		"_id":           info.ID,
		"title":         info.Title,
		"content":       info.Content,
		"owner":         info.Owner,
		"shared_with":   info.SharedWith,
		"version":       info.Version,
		"last_modified": now,
		"created_at":    now,
		"updated_at":    now,
		"versions": []versionEntry{{
			Content:    fields.Content,
			Timestamp:  now,
			ModifiedBy: fields.Owner,
		}},
	}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", info.ID, database.ErrDocumentAlreadyExists)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	return info, nil
}

// FindDocInfoByID returns the document of the given id.
func (c *Client) FindDocInfoByID(ctx context.Context, id types.ID) (*database.DocInfo, error) {
	result := c.collection(ColDocuments).FindOne(
		ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(withoutVersions()),
	)

	info := &database.DocInfo{}
	if err := result.Decode(info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", id, database.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return info, nil
}

// FindDocInfosByOwner returns the documents owned by the user.
func (c *Client) FindDocInfosByOwner(ctx context.Context, owner string) ([]*database.DocInfo, error) {
	return c.findDocInfos(ctx, bson.M{"owner": owner})
}

// FindDocInfosSharedWith returns the documents shared with the user.
func (c *Client) FindDocInfosSharedWith(ctx context.Context, userID string) ([]*database.DocInfo, error) {
	return c.findDocInfos(ctx, bson.M{
		"shared_with.user_id": userID,
		"owner":               bson.M{"$ne": userID},
	})
}

func (c *Client) findDocInfos(ctx context.Context, filter bson.M) ([]*database.DocInfo, error) {
	cursor, err := c.collection(ColDocuments).Find(ctx, filter, findOptionsByRecency())
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}

	var infos []*database.DocInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	return infos, nil
}

// AppendVersion writes the content and pushes a version entry with a single
// update, so that concurrent appends on one document are never lost.
func (c *Client) AppendVersion(
	ctx context.Context,
	id types.ID,
	fields *database.VersionFields,
) (*database.DocInfo, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"content":       fields.Content,
		"last_modified": now,
		"updated_at":    now,
	}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}

	result := c.collection(ColDocuments).FindOneAndUpdate(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
		"$push": bson.M{"versions": versionEntry{
			Content:    fields.Content,
			Timestamp:  now,
			ModifiedBy: fields.ModifiedBy,
		}},
	}, options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutVersions()))

	info := &database.DocInfo{}
	if err := result.Decode(info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", id, database.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("append version to %s: %s: %w", id, err, database.ErrPersistenceFailure)
	}
	return info, nil
}

// UpsertShare grants the permission to the user. An existing grant is
// updated in place; otherwise a new grant is pushed, guarded against a
// concurrent push of the same user.
func (c *Client) UpsertShare(
	ctx context.Context,
	id types.ID,
	share database.ShareInfo,
) (*database.DocInfo, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	col := c.collection(ColDocuments)

	for attempt := 0; attempt < 2; attempt++ {
		res, err := col.UpdateOne(ctx, bson.M{
			"_id":                 id,
			"shared_with.user_id": share.UserID,
		}, bson.M{"$set": bson.M{
			"shared_with.$.permission": share.Permission,
			"updated_at":               now,
		}})
		if err != nil {
			return nil, fmt.Errorf("update share of %s: %w", id, err)
		}
		if res.MatchedCount > 0 {
			return c.FindDocInfoByID(ctx, id)
		}

		res, err = col.UpdateOne(ctx, bson.M{
			"_id":                 id,
			"shared_with.user_id": bson.M{"$ne": share.UserID},
		}, bson.M{
			"$push": bson.M{"shared_with": share},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return nil, fmt.Errorf("push share of %s: %w", id, err)
		}
		if res.MatchedCount > 0 {
			return c.FindDocInfoByID(ctx, id)
		}

		if _, err := c.FindDocInfoByID(ctx, id); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("share %s with %s: %w", id, share.UserID, database.ErrPersistenceFailure)
}

// FindVersionInfos returns the version history of the document.
func (c *Client) FindVersionInfos(ctx context.Context, id types.ID) ([]*database.VersionInfo, error) {
	result := c.collection(ColDocuments).FindOne(
		ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"versions": 1}),
	)

	var doc struct {
		Versions []versionEntry `bson:"versions"`
	}
	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", id, database.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("find versions of %s: %w", id, err)
	}

	infos := make([]*database.VersionInfo, 0, len(doc.Versions))
	for i, entry := range doc.Versions {
		infos = append(infos, &database.VersionInfo{
			DocID:      id,
			Seq:        i + 1,
			Content:    entry.Content,
			Timestamp:  entry.Timestamp,
			ModifiedBy: entry.ModifiedBy,
		})
	}
	return infos, nil
}

// DeleteDocInfo deletes the document and its history.
func (c *Client) DeleteDocInfo(ctx context.Context, id types.ID) error {
	res, err := c.collection(ColDocuments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrDocumentNotFound)
	}
	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.InkwellDatabase).Collection(name)
}
