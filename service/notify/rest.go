package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"AgoraNotify/module/notification/model"

	"github.com/pkg/errors"
)

// RestConfig points the backend client at the notification resource. The
// bearer credential is attached to every request.
type RestConfig struct {
	BaseURL    string // e.g. http://localhost:8080
	Token      string
	HTTPClient *http.Client
}

type restBackend struct {
	base   string
	token  string
	client *http.Client
}

// NewRestBackend returns the HTTP implementation of Backend against the hub's
// REST API.
func NewRestBackend(cfg RestConfig) Backend {
	c := cfg.HTTPClient
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &restBackend{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		token:  cfg.Token,
		client: c,
	}
}

func (r *restBackend) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return errors.Errorf("%s %s: status %d body=%q", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

func (r *restBackend) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var list []model.Notification
	if err := r.do(ctx, http.MethodGet, "/api/notifications", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *restBackend) MarkRead(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodPut, fmt.Sprintf("/api/notifications/%s/read", id), nil)
}

func (r *restBackend) MarkAllRead(ctx context.Context) error {
	return r.do(ctx, http.MethodPut, "/api/notifications/mark-all-read", nil)
}

func (r *restBackend) DeleteNotification(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/notifications/"+id, nil)
}
