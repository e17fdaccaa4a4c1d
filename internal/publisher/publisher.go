// Package publisher pushes rendered videos to the social platform via
// its Graph API. Publishing is a three phase flow: create a media
// container from a public video URL, poll the container until the
// platform finishes ingesting it, then publish the container to the
// account feed.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrContainerProcessing means the poll budget ran out while the
	// container was still IN_PROGRESS. The whole publish is retryable.
	ErrContainerProcessing = errors.New("publisher: container still processing")

	// ErrContainerFailed means the platform rejected the media. Retrying
	// with the same video will fail again.
	ErrContainerFailed = errors.New("publisher: container processing failed")
)

type Request struct {
	AccessToken    string
	PlatformUserID string
	VideoURL       string
	Caption        string
}

type Result struct {
	MediaID string
}

type Publisher interface {
	Publish(ctx context.Context, req Request) (Result, error)
}

type Client struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	maxPoll      time.Duration
}

func NewClient(baseURL string, pollInterval, maxPoll time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxPoll <= 0 {
		maxPoll = 5 * time.Minute
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		maxPoll:      maxPoll,
	}
}

func (c *Client) Publish(ctx context.Context, req Request) (Result, error) {
	if req.AccessToken == "" || req.PlatformUserID == "" {
		return Result{}, fmt.Errorf("publisher: missing platform credentials")
	}
	if req.VideoURL == "" {
		return Result{}, fmt.Errorf("publisher: video url is required")
	}

	containerID, err := c.createContainer(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := c.waitForContainer(ctx, req.AccessToken, containerID); err != nil {
		return Result{}, err
	}

	mediaID, err := c.publishContainer(ctx, req, containerID)
	if err != nil {
		return Result{}, err
	}

	return Result{MediaID: mediaID}, nil
}

func (c *Client) createContainer(ctx context.Context, req Request) (string, error) {
	form := url.Values{}
	form.Set("media_type", "REELS")
	form.Set("video_url", req.VideoURL)
	if req.Caption != "" {
		form.Set("caption", req.Caption)
	}
	form.Set("access_token", req.AccessToken)

	var out struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s/media", c.baseURL, req.PlatformUserID)
	if err := c.postForm(ctx, endpoint, form, &out); err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create container: empty container id")
	}
	return out.ID, nil
}

func (c *Client) waitForContainer(ctx context.Context, token, containerID string) error {
	deadline := time.Now().Add(c.maxPoll)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.containerStatus(ctx, token, containerID)
		if err != nil {
			return err
		}

		switch status {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("%w: status %s", ErrContainerFailed, status)
		}

		if time.Now().After(deadline) {
			return ErrContainerProcessing
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) containerStatus(ctx context.Context, token, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		c.baseURL, containerID, url.QueryEscape(token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", graphError("container status", res)
	}

	var out struct {
		StatusCode string `json:"status_code"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.StatusCode, nil
}

func (c *Client) publishContainer(ctx context.Context, req Request, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", req.AccessToken)

	var out struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s/media_publish", c.baseURL, req.PlatformUserID)
	if err := c.postForm(ctx, endpoint, form, &out); err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	return out.ID, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return graphError("graph api", res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func graphError(op string, res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("%s: http %d: %s (code %d)", op, res.StatusCode,
			envelope.Error.Message, envelope.Error.Code)
	}
	return fmt.Errorf("%s: http %d", op, res.StatusCode)
}
