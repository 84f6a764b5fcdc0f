package predictor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ShrimpCast/internal/domain/models"
	xhttp "ShrimpCast/pkg/http"
)

const DefaultRemotePath = "/predict"

type remoteRequest struct {
	Model    string      `json:"model"`
	Features []string    `json:"features"`
	Rows     [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Remote calls an inference service over HTTP. Transport failures and 5xx
// replies are retried, then reported as ErrModelUnavailable.
type Remote struct {
	info     models.ModelInfo
	endpoint string
	columns  []string
	attempts int
	client   *xhttp.Client
}

type RemoteOption func(*Remote)

// WithRemoteClient replaces the HTTP client, mainly for tests.
func WithRemoteClient(c *xhttp.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

func NewRemote(role, name, baseURL, path string, columns []string, timeout time.Duration, attempts int, opts ...RemoteOption) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s: invalid url %q", models.ErrModelUnavailable, role, baseURL)
	}
	if path == "" {
		path = DefaultRemotePath
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	r := &Remote{
		info:     models.ModelInfo{Role: role, Kind: KindHTTP, Name: nameOr(name, role), Features: len(columns)},
		endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		columns:  columns,
		attempts: attempts,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (m *Remote) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := checkWidth(rows, len(m.columns)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []float64{}, nil
	}

	payload := remoteRequest{Model: m.info.Name, Features: m.columns, Rows: rows}
	var resp remoteResponse
	if err := m.postWithRetry(ctx, payload, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", models.ErrModelUnavailable, m.info.Name, err)
	}
	return resp.Predictions, nil
}

func (m *Remote) postWithRetry(ctx context.Context, payload, dest interface{}) error {
	var err error
	for i := 1; i <= m.attempts; i++ {
		err = m.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     m.endpoint,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    payload,
		}, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return err
		}
		if i == m.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *Remote) Info() models.ModelInfo { return m.info }
