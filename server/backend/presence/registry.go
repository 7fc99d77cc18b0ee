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

// Package presence tracks the connected users and the members of every
// document room. The state is process-local and never persisted.
package presence

import (
	"sort"
	"sync"

	"github.com/inkwell-team/inkwell/api/types"
)

// Departure describes a user whose membership of a room ended.
type Departure struct {
	DocumentID types.ID
	Member     types.Member
}

type userEntry struct {
	username string
	conns    map[string]struct{}
}

type roomMember struct {
	seq   int64
	conns map[string]struct{}
}

type room struct {
	members map[string]*roomMember
}

// Registry holds the presence entries and the room memberships. A user may be
// connected more than once; the user stays a member of a room while at least
// one of its connections is in it.
type Registry struct {
	mu sync.RWMutex

	// users maps a user id to its username and live connections.
	users map[string]*userEntry

	// connUsers maps a connection id to the user id it was registered with.
	connUsers map[string]string

	// connRooms maps a connection id to the rooms it joined.
	connRooms map[string]map[types.ID]string

	rooms map[types.ID]*room
	seq   int64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		users:     make(map[string]*userEntry),
		connUsers: make(map[string]string),
		connRooms: make(map[string]map[types.ID]string),
		rooms:     make(map[types.ID]*room),
	}
}

// Register records the identity of a connection. Registering the same
// connection again is a no-op apart from refreshing the username, and the
// most recent registration of a user decides its username. Anonymous
// identities are not registered.
func (r *Registry) Register(connID string, identity types.Identity) {
	if identity.IsAnonymous() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[identity.UserID]
	if !ok {
		entry = &userEntry{conns: make(map[string]struct{})}
		r.users[identity.UserID] = entry
	}
	entry.username = identity.Username
	entry.conns[connID] = struct{}{}
	r.connUsers[connID] = identity.UserID
}

// Unregister removes the connection from the registry and from every room it
// joined. It returns the rooms the connection's user is no longer a member
// of, ordered by document id.
func (r *Registry) Unregister(connID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure
	for docID, userID := range r.connRooms[connID] {
		username := r.usernameOf(userID)
		if r.removeFromRoom(docID, userID, connID) {
			departures = append(departures, Departure{
				DocumentID: docID,
				Member:     types.Member{UserID: userID, Username: username},
			})
		}
	}
	delete(r.connRooms, connID)

	if userID, ok := r.connUsers[connID]; ok {
		delete(r.connUsers, connID)
		if entry, ok := r.users[userID]; ok {
			delete(entry.conns, connID)
			if len(entry.conns) == 0 {
				delete(r.users, userID)
			}
		}
	}

	sort.Slice(departures, func(i, j int) bool {
		return departures[i].DocumentID < departures[j].DocumentID
	})
	return departures
}

// AddToRoom adds the user, through the given connection, to the room. It
// reports whether the user was not a member before.
func (r *Registry) AddToRoom(docID types.ID, userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[docID]
	if !ok {
		rm = &room{members: make(map[string]*roomMember)}
		r.rooms[docID] = rm
	}

	joined := false
	member, ok := rm.members[userID]
	if !ok {
		r.seq++
		member = &roomMember{seq: r.seq, conns: make(map[string]struct{})}
		rm.members[userID] = member
		joined = true
	}
	member.conns[connID] = struct{}{}

	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(map[types.ID]string)
	}
	r.connRooms[connID][docID] = userID

	return joined
}

// RemoveFromRoom removes the connection of the user from the room. It reports
// whether the user is no longer a member. Empty rooms are deleted.
func (r *Registry) RemoveFromRoom(docID types.ID, userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, docID)
		if len(rooms) == 0 {
			delete(r.connRooms, connID)
		}
	}
	return r.removeFromRoom(docID, userID, connID)
}

func (r *Registry) removeFromRoom(docID types.ID, userID, connID string) bool {
	rm, ok := r.rooms[docID]
	if !ok {
		return false
	}
	member, ok := rm.members[userID]
	if !ok {
		return false
	}

	delete(member.conns, connID)
	if len(member.conns) > 0 {
		return false
	}

	delete(rm.members, userID)
	if len(rm.members) == 0 {
		delete(r.rooms, docID)
	}
	return true
}

// ListRoom returns the members of the room in the order they joined. A
// member without a presence entry has an empty username.
func (r *Registry) ListRoom(docID types.ID) []types.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[docID]
	if !ok {
		return []types.Member{}
	}

	type ordered struct {
		seq    int64
		member types.Member
	}
	list := make([]ordered, 0, len(rm.members))
	for userID, m := range rm.members {
		list = append(list, ordered{
			seq:    m.seq,
			member: types.Member{UserID: userID, Username: r.usernameOf(userID)},
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	members := make([]types.Member, len(list))
	for i, o := range list {
		members[i] = o.member
	}
	return members
}

// IsMember reports whether the user is a member of the room.
func (r *Registry) IsMember(docID types.ID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[docID]
	if !ok {
		return false
	}
	_, ok = rm.members[userID]
	return ok
}

// Username returns the username of a registered user.
func (r *Registry) Username(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	if !ok {
		return "", false
	}
	return entry.username, true
}

// Stats returns the number of users, connections and rooms.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := 0
	for _, rm := range r.rooms {
		members += len(rm.members)
	}

	return map[string]int{
		"users":        len(r.users),
		"connections":  len(r.connUsers),
		"rooms":        len(r.rooms),
		"room_members": members,
	}
}

func (r *Registry) usernameOf(userID string) string {
	if entry, ok := r.users[userID]; ok {
		return entry.username
	}
	return ""
}
