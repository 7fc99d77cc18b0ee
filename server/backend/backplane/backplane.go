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

// Package backplane fans room broadcasts out to every server node. Each node
// subscribes to the rooms its connections joined and delivers the messages it
// receives to its local connections.
package backplane

import (
	"context"
	"sync"

	"github.com/rs/xid"

	"github.com/inkwell-team/inkwell/api/types"
)

// Message is a broadcast addressed to the members of a room.
type Message struct {
	Room types.ID `json:"room"`

	// Event is the wire name of the frame.
	Event string `json:"event"`

	// Frame is the encoded envelope sent to the clients as-is.
	Frame []byte `json:"frame"`

	// Exclude is the id of the connection that must not receive the frame.
	Exclude string `json:"exclude,omitempty"`
}

// DeliverFunc hands a message to the local members of a room. It must not
// block.
type DeliverFunc func(msg Message)

// Backplane publishes room messages and delivers them to subscribers.
type Backplane interface {
	// Publish sends the message to every subscriber of its room on every node.
	Publish(ctx context.Context, msg Message) error

	// Subscribe registers deliver for the messages of the room. The returned
	// function cancels the subscription.
	Subscribe(ctx context.Context, room types.ID, deliver DeliverFunc) (func(), error)

	// Close releases the resources of the backplane.
	Close() error
}

// Subscribers is the local subscription table shared by the implementations.
type Subscribers struct {
	mu    sync.RWMutex
	rooms map[types.ID]map[string]DeliverFunc
}

// NewSubscribers creates an empty table.
func NewSubscribers() *Subscribers {
	return &Subscribers{rooms: make(map[types.ID]map[string]DeliverFunc)}
}

// Add registers deliver for the room. It returns the subscription id and
// whether it is the first local subscription of the room.
func (s *Subscribers) Add(room types.ID, deliver DeliverFunc) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.rooms[room]
	if !ok {
		subs = make(map[string]DeliverFunc)
		s.rooms[room] = subs
	}
	id := xid.New().String()
	subs[id] = deliver
	return id, !ok
}

// Remove cancels a subscription. It reports whether the room has no local
// subscription left.
func (s *Subscribers) Remove(room types.ID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.rooms[room]
	if !ok {
		return false
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(s.rooms, room)
		return true
	}
	return false
}

// Dispatch delivers the message to the local subscribers of its room.
func (s *Subscribers) Dispatch(msg Message) {
	s.mu.RLock()
	subs := make([]DeliverFunc, 0, len(s.rooms[msg.Room]))
	for _, deliver := range s.rooms[msg.Room] {
		subs = append(subs, deliver)
	}
	s.mu.RUnlock()

	for _, deliver := range subs {
		deliver(msg)
	}
}

// Rooms returns the rooms with at least one local subscription.
func (s *Subscribers) Rooms() []types.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]types.ID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
