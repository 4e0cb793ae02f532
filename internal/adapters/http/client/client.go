// Package client talks to the shared stream record on behalf of the control
// panel and the overlays.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	repository "github.com/okian/overlay/internal/adapters/repository"
	model "github.com/okian/overlay/internal/domain/model"
)

const (
	defaultPath    = "/stream-data"
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 4 << 10
)

// Remote reads and replaces the shared record.
type Remote interface {
	Fetch(ctx context.Context) (model.StreamRecord, error)
	// Publish replaces the record with rec. A nil rec.Burndown leaves the
	// stored burndown untouched; rec.LastEvent is always written.
	Publish(ctx context.Context, rec model.StreamRecord) (model.StreamRecord, error)
}

// HTTP is a Remote backed by the stream data endpoint.
type HTTP struct {
	baseURL string
	path    string
	hc      *http.Client
}

var _ Remote = (*HTTP)(nil)

// NewHTTP creates a client for the store at baseURL, e.g. http://localhost:9080.
func NewHTTP(baseURL string, opts ...Option) *HTTP {
	c := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    defaultPath,
		hc:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs the record with cache-busting headers.
func (c *HTTP) Fetch(ctx context.Context) (model.StreamRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.path, http.NoBody)
	if err != nil {
		return model.StreamRecord{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")
	return c.do(req)
}

// Publish POSTs rec as JSON.
func (c *HTTP) Publish(ctx context.Context, rec model.StreamRecord) (model.StreamRecord, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return model.StreamRecord{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return model.StreamRecord{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTP) do(req *http.Request) (model.StreamRecord, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return model.StreamRecord{}, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusBadRequest {
			return model.StreamRecord{}, fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return model.StreamRecord{}, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode, msg)
	}

	var rec model.StreamRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return model.StreamRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

func readErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}

// Local is a Remote over an in-process store.
type Local struct {
	store repository.Store
}

var _ Remote = (*Local)(nil)

// NewLocal wraps store.
func NewLocal(store repository.Store) *Local {
	return &Local{store: store}
}

// Fetch implements Remote.
func (l *Local) Fetch(ctx context.Context) (model.StreamRecord, error) {
	return l.store.Get(ctx)
}

// Publish implements Remote. Range errors wrap ErrRejected like the HTTP client.
func (l *Local) Publish(ctx context.Context, rec model.StreamRecord) (model.StreamRecord, error) {
	out, err := l.store.Replace(ctx, model.PatchFromRecord(rec))
	if err != nil {
		if errors.Is(err, model.ErrInvalidRecord) {
			return model.StreamRecord{}, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return model.StreamRecord{}, err
	}
	return out, nil
}
