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

// Package memory implements a backplane for a single server node.
package memory

import (
	"context"
	"sync"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/backplane"
)

// Backplane delivers messages to the subscribers of the same process.
type Backplane struct {
	subs *backplane.Subscribers
}

// New creates a new in-process Backplane.
func New() *Backplane {
	return &Backplane{subs: backplane.NewSubscribers()}
}

// Publish delivers the message synchronously.
func (b *Backplane) Publish(_ context.Context, msg backplane.Message) error {
	b.subs.Dispatch(msg)
	return nil
}

// Subscribe registers deliver for the messages of the room.
func (b *Backplane) Subscribe(
	_ context.Context,
	room types.ID,
	deliver backplane.DeliverFunc,
) (func(), error) {
	id, _ := b.subs.Add(room, deliver)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subs.Remove(room, id)
		})
	}, nil
}

// Close does nothing.
func (b *Backplane) Close() error {
	return nil
}
