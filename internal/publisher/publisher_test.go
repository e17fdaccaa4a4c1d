package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{
		AccessToken:    "tok",
		PlatformUserID: "1789",
		VideoURL:       "https://cdn.example.com/v.mp4",
		Caption:        "daily reel",
	}
}

func TestPublishHappyPath(t *testing.T) {
	var statusPolls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1789/media":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "REELS", r.PostForm.Get("media_type"))
			assert.Equal(t, "https://cdn.example.com/v.mp4", r.PostForm.Get("video_url"))
			assert.Equal(t, "daily reel", r.PostForm.Get("caption"))
			fmt.Fprint(w, `{"id":"cont-1"}`)

		case "/cont-1":
			// FINISHED on the second poll.
			if statusPolls.Add(1) < 2 {
				fmt.Fprint(w, `{"status_code":"IN_PROGRESS"}`)
			} else {
				fmt.Fprint(w, `{"status_code":"FINISHED"}`)
			}

		case "/1789/media_publish":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "cont-1", r.PostForm.Get("creation_id"))
			fmt.Fprint(w, `{"id":"media-9"}`)

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond, time.Second)
	res, err := c.Publish(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "media-9", res.MediaID)
	assert.GreaterOrEqual(t, statusPolls.Load(), int32(2))
}

func TestPublishContainerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1789/media":
			fmt.Fprint(w, `{"id":"cont-1"}`)
		case "/cont-1":
			fmt.Fprint(w, `{"status_code":"ERROR"}`)
		default:
			t.Errorf("media_publish reached for a failed container")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond, time.Second)
	_, err := c.Publish(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrContainerFailed)
}

func TestPublishPollBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1789/media":
			fmt.Fprint(w, `{"id":"cont-1"}`)
		case "/cont-1":
			fmt.Fprint(w, `{"status_code":"IN_PROGRESS"}`)
		default:
			t.Errorf("media_publish reached while still processing")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Millisecond, 30*time.Millisecond)
	_, err := c.Publish(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrContainerProcessing)
}

func TestPublishGraphErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token","code":190}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond, time.Second)
	_, err := c.Publish(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Contains(t, err.Error(), "190")
}

func TestPublishValidation(t *testing.T) {
	c := NewClient("http://unused", time.Millisecond, time.Millisecond)

	req := testRequest()
	req.AccessToken = ""
	_, err := c.Publish(context.Background(), req)
	require.Error(t, err)

	req = testRequest()
	req.VideoURL = ""
	_, err = c.Publish(context.Background(), req)
	require.Error(t, err)
}
