// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/spaces"
)

const testTimeout = 2 * time.Second

func TestSpaceInfo(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/spaces/owner/space", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"subdomain":"owner-space","emoji":"🚀","private":false,"sdk":"gradio","runtime":{"stage":"RUNNING"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.SpaceInfo(context.Background(), spaces.ID{Owner: "owner", Name: "space"}, "tok", "", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, result.Metadata)
	assert.False(t, result.NotModified)
	assert.Equal(t, "owner-space", result.Metadata.Subdomain)
	assert.Equal(t, "🚀", result.Metadata.Emoji)
	assert.Equal(t, "gradio", result.Metadata.SDK)
	assert.Equal(t, `"v1"`, result.Metadata.ETag)
	require.NotNil(t, result.Metadata.Runtime)
	assert.Equal(t, "RUNNING", result.Metadata.Runtime.Stage)
}

func TestSpaceInfoConditional(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"subdomain":"owner-space","sdk":"gradio"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	id := spaces.ID{Owner: "owner", Name: "space"}

	result, err := c.SpaceInfo(context.Background(), id, "", `"v1"`, testTimeout)
	require.NoError(t, err)
	assert.True(t, result.NotModified)
	assert.Nil(t, result.Metadata)

	result, err = c.SpaceInfo(context.Background(), id, "", "", testTimeout)
	require.NoError(t, err)
	assert.False(t, result.NotModified)
	require.NotNil(t, result.Metadata)
}

func TestSpaceInfoNotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SpaceInfo(context.Background(), spaces.ID{Owner: "owner", Name: "gone"}, "", "", testTimeout)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx answers are not retried")
}

func TestSpaceInfoRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"subdomain":"owner-space","sdk":"gradio"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.SpaceInfo(context.Background(), spaces.ID{Owner: "owner", Name: "space"}, "", "", testTimeout)
	require.NoError(t, err)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReadHTTPErrorCapsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	got := readHTTPError(resp)
	assert.LessOrEqual(t, len(got.Error()), maxErrorBodyBytes+100)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/whoami-v2", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"name":"alice","fullname":"Alice Example"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewTokenValidator(srv.URL)

	identity, err := v.Validate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "Alice Example", identity.Name)
	assert.Equal(t, "good", identity.Token)
}

func TestValidateUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewTokenValidator(srv.URL)
	_, err := v.Validate(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestUserSettings(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"builtInTools":["hf_whoami"],"gradioFunctions":["owner/space"]}`))
	}))
	defer srv.Close()

	p := NewSettingsProvider(srv.URL)
	settings, err := p.UserSettings(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, []string{"hf_whoami"}, settings.BuiltInTools)
	assert.Equal(t, []string{"owner/space"}, settings.GradioSpaces)
}

func TestUserSettingsDegradesToNil(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewSettingsProvider(srv.URL)
	settings, err := p.UserSettings(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, settings)

	// Anonymous callers never hit the network.
	settings, err = p.UserSettings(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, settings)
}
