package renderer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "reelforge/internal/contracts/renderer/v1"
)

func testSpec() v1.RenderSpec {
	return v1.RenderSpec{
		RenderID:      "rec-1",
		CompositionID: "daily-reel",
		InputProps:    map[string]any{"title": "hi"},
		Output:        v1.Output{VideoPath: "/tmp/renders/rec-1.mp4"},
	}
}

func TestRenderBundlesOnce(t *testing.T) {
	var bundles, renders atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bundle":
			bundles.Add(1)
		case "/render":
			renders.Add(1)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)
	require.NoError(t, c.Render(context.Background(), testSpec()))
	require.NoError(t, c.Render(context.Background(), testSpec()))

	assert.Equal(t, int32(1), bundles.Load())
	assert.Equal(t, int32(2), renders.Load())
}

func TestRenderBundleFailureIsSticky(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bundle" {
			http.Error(w, `{"code":"BUNDLE_ERROR","message":"esbuild exited 1"}`, http.StatusInternalServerError)
			return
		}
		t.Errorf("render reached despite failed bundle")
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)
	err := c.Render(context.Background(), testSpec())
	require.ErrorIs(t, err, ErrBundleFailed)

	// Subsequent calls fail without retrying the bundle.
	err = c.Render(context.Background(), testSpec())
	require.ErrorIs(t, err, ErrBundleFailed)
}

func TestRenderCanceledCallerDoesNotPoisonBundle(t *testing.T) {
	var bundles atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bundle" {
			bundles.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)

	// First caller arrives already canceled. The bundle runs on its
	// own context; only the render call fails.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Render(ctx, testSpec())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBundleFailed)

	// A later caller with a live context renders normally.
	require.NoError(t, c.Render(context.Background(), testSpec()))
	assert.Equal(t, int32(1), bundles.Load())
}

func TestRenderCompositionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bundle" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"COMPOSITION_NOT_FOUND","message":"no composition daily-reel"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)
	err := c.Render(context.Background(), testSpec())
	require.ErrorIs(t, err, ErrCompositionNotFound)
	assert.Contains(t, err.Error(), "daily-reel")
}

func TestRenderGenericHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bundle" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)
	err := c.Render(context.Background(), testSpec())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCompositionNotFound)
	assert.Contains(t, err.Error(), "502")
}
