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

// Identity is the claimed identity attached to a connection at handshake.
// The zero value is an anonymous connection.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// IsAnonymous returns true if no user id was supplied.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// Member is a user present in a document room. Username is empty when the
// user has no live presence entry.
type Member struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
