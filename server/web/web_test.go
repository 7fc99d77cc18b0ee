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

package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/web"
	"github.com/inkwell-team/inkwell/test/helper"
)

type client struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func newClient(t *testing.T, be *backend.Backend, srv *httptest.Server, userID string) *client {
	token, err := be.Tokens.Generate(types.Identity{UserID: userID, Username: userID})
	require.NoError(t, err)
	return &client{t: t, srv: srv, token: token}
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func newTestServer(t *testing.T) (*backend.Backend, *httptest.Server) {
	be := helper.TestBackend(t)
	conf := helper.TestConfig().HTTP
	conf.AllowedOrigins = []string{"http://localhost:5173"}

	s := web.NewServer(conf, be, http.NotFoundHandler())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return be, srv
}

func TestNotesAPI(t *testing.T) {
	be, srv := newTestServer(t)
	alice := newClient(t, be, srv, "alice")
	bob := newClient(t, be, srv, "bob")

	var created types.Document
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/notes", web.CreateNoteRequest{}, &created))
	assert.Equal(t, types.DefaultDocumentTitle, created.Title)
	assert.Equal(t, "alice", created.Owner)
	assert.Equal(t, 1, created.Version)
	path := "/api/notes/" + created.ID.String()

	t.Run("update appends a version test", func(t *testing.T) {
		content := "Hello"
		var updated types.Document
		require.Equal(t, http.StatusOK, alice.do(http.MethodPut, path, web.UpdateNoteRequest{Content: &content}, &updated))
		assert.Equal(t, "Hello", updated.Content)
		assert.Equal(t, types.DefaultDocumentTitle, updated.Title)
		assert.Equal(t, 2, updated.Version)

		var versions []types.VersionInfo
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, path+"/versions", nil, &versions))
		require.Len(t, versions, 2)
		assert.Equal(t, "Hello", versions[1].Content)
		assert.Equal(t, "alice", versions[1].ModifiedBy)
	})

	t.Run("share test", func(t *testing.T) {
		var errResp web.ErrorResponse
		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodGet, path, nil, &errResp))
		assert.Equal(t, "ErrPermissionDenied", errResp.Code)

		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, path+"/share",
			web.ShareNoteRequest{UserID: "bob", Permission: "admin"}, &errResp))

		var shared types.Document
		require.Equal(t, http.StatusOK, alice.do(http.MethodPost, path+"/share",
			web.ShareNoteRequest{UserID: "bob", Permission: types.PermRead}, &shared))
		assert.Equal(t, []types.Share{{UserID: "bob", Permission: types.PermRead}}, shared.SharedWith)

		var doc types.Document
		assert.Equal(t, http.StatusOK, bob.do(http.MethodGet, path, nil, &doc))

		content := "mine now"
		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPut, path, web.UpdateNoteRequest{Content: &content}, &errResp))

		var list types.DocumentList
		require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/api/notes", nil, &list))
		assert.Empty(t, list.Owned)
		require.Len(t, list.Shared, 1)
		assert.Equal(t, created.ID, list.Shared[0].ID)

		var users []types.Member
		require.Equal(t, http.StatusOK, bob.do(http.MethodGet, path+"/users", nil, &users))
		assert.Empty(t, users)
	})

	t.Run("invalid request test", func(t *testing.T) {
		var errResp web.ErrorResponse
		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPut, path, map[string]string{"title": "x"}, &errResp))
		assert.Equal(t, "ErrInvalidBody", errResp.Code)

		assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/api/notes/missing", nil, &errResp))
		assert.Equal(t, "ErrDocumentNotFound", errResp.Code)
	})

	t.Run("delete test", func(t *testing.T) {
		var errResp web.ErrorResponse
		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, path, nil, &errResp))
		assert.Equal(t, "ErrNotOwner", errResp.Code)

		var msg web.MessageResponse
		require.Equal(t, http.StatusOK, alice.do(http.MethodDelete, path, nil, &msg))
		assert.Equal(t, "Note deleted successfully", msg.Message)

		assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, path, nil, &errResp))
	})
}

func TestServer(t *testing.T) {
	_, srv := newTestServer(t)

	t.Run("health test", func(t *testing.T) {
		var health web.HealthResponse
		anonymous := &client{t: t, srv: srv}
		require.Equal(t, http.StatusOK, anonymous.do(http.MethodGet, "/", nil, &health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("unauthenticated test", func(t *testing.T) {
		var errResp web.ErrorResponse
		anonymous := &client{t: t, srv: srv}
		assert.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodGet, "/api/notes", nil, &errResp))
		assert.Equal(t, "ErrUnauthenticated", errResp.Code)

		invalid := &client{t: t, srv: srv, token: "garbage"}
		assert.Equal(t, http.StatusUnauthorized, invalid.do(http.MethodGet, "/api/notes", nil, &errResp))
	})

	t.Run("cors preflight test", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/notes", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

		req.Header.Set("Origin", "http://evil.example")
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestConfig(t *testing.T) {
	conf := *helper.TestConfig().HTTP
	assert.NoError(t, conf.Validate())

	conf1 := conf
	conf1.Port = 0
	assert.ErrorIs(t, conf1.Validate(), web.ErrInvalidHTTPPort)

	conf2 := conf
	conf2.CertFile = "/no/such/cert.pem"
	assert.ErrorIs(t, conf2.Validate(), web.ErrInvalidCertFile)

	conf3 := conf
	conf3.MaxRequestBytes = 0
	assert.ErrorIs(t, conf3.Validate(), web.ErrInvalidMaxRequestBytes)
}
