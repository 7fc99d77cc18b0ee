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

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/server/auth"
)

func TestBindEnv(t *testing.T) {
	cmd := &cobra.Command{}
	port := cmd.Flags().Int("http-port", 8080, "")
	host := cmd.Flags().String("hostname", "", "")
	require.NoError(t, cmd.Flags().Set("hostname", "node-a"))

	t.Setenv("INKWELL_HTTP_PORT", "9090")
	t.Setenv("INKWELL_HOSTNAME", "node-b")

	require.NoError(t, bindEnv(cmd.Flags()))
	assert.Equal(t, 9090, *port)
	assert.Equal(t, "node-a", *host)

	t.Setenv("INKWELL_HTTP_PORT", "not-a-port")
	cmd = &cobra.Command{}
	cmd.Flags().Int("http-port", 8080, "")
	assert.Error(t, bindEnv(cmd.Flags()))
}

func TestTokenCmd(t *testing.T) {
	cmd := newTokenCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	tokenSecretKey = "cli-secret"
	tokenUsername = "Alice"
	tokenTTL = time.Hour
	require.NoError(t, cmd.RunE(cmd, []string{"alice"}))

	claims, err := auth.NewTokenManager("cli-secret", 0).Verify(strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "Alice", claims.Username)

	assert.Error(t, cmd.RunE(cmd, nil))
}
