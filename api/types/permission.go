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

// Permission is the level of access granted to a collaborator.
type Permission string

const (
	// PermRead allows loading a document.
	PermRead Permission = "read"

	// PermWrite allows loading and changing a document.
	PermWrite Permission = "write"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	return p == PermRead || p == PermWrite
}

// Allows reports whether holding p grants the required permission.
func (p Permission) Allows(required Permission) bool {
	switch p {
	case PermWrite:
		return required == PermRead || required == PermWrite
	case PermRead:
		return required == PermRead
	default:
		return false
	}
}
