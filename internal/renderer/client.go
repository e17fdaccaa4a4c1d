package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	v1 "reelforge/internal/contracts/renderer/v1"
)

var (
	// ErrBundleFailed means the sidecar could not build its composition
	// bundle; no render can succeed until that is fixed.
	ErrBundleFailed = errors.New("renderer: bundle failed")

	// ErrCompositionNotFound means the requested composition_id is not
	// registered in the bundle. Retrying the same spec will not help.
	ErrCompositionNotFound = errors.New("renderer: composition not found")
)

type Client interface {
	Render(ctx context.Context, spec v1.RenderSpec) error
}

// HTTPClient talks to the renderer sidecar. The bundle is built at most
// once per process; all Render calls wait for it.
type HTTPClient struct {
	baseURL string
	client  *http.Client

	bundleOnce sync.Once
	bundleErr  error
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Render(ctx context.Context, spec v1.RenderSpec) error {
	c.bundleOnce.Do(func() {
		// The bundle outcome is shared by every later render, so it
		// must not inherit the first caller's cancellation. The HTTP
		// client timeout still bounds the call.
		if err := c.post(context.Background(), "/bundle", nil); err != nil {
			c.bundleErr = fmt.Errorf("%w: %v", ErrBundleFailed, err)
		}
	})
	if c.bundleErr != nil {
		return c.bundleErr
	}

	return c.post(ctx, "/render", spec)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var envelope v1.ErrorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Code == "COMPOSITION_NOT_FOUND" {
		return fmt.Errorf("%w: %s", ErrCompositionNotFound, envelope.Message)
	}

	return fmt.Errorf("renderer http %d: %s", res.StatusCode, string(raw))
}
