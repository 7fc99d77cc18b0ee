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

package auth

import (
	"context"

	"github.com/inkwell-team/inkwell/api/types"
)

// key is the key for the context.Context.
type key int

// identityKey Key = 0
const identityKey key = 0

// CtxWithIdentity creates a new context with the given Identity.
func CtxWithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromCtx returns the identity of the request. Requests that went
// through no authentication yield the anonymous identity.
func IdentityFromCtx(ctx context.Context) types.Identity {
	identity, ok := ctx.Value(identityKey).(types.Identity)
	if !ok {
		return types.Identity{}
	}
	return identity
}
