package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/metrics"
	"github.com/labujaya/lastbite/pkg/types"
)

const (
	responseBodyReadLimit int64 = 4 << 20
	headerRequestID             = "X-Request-ID"
)

// Resource is a JSON client for one path prefix of the API.
type Resource struct {
	name    string
	base    string
	http    *http.Client
	logger  *logger.Logger
	metrics *metrics.ClientMetrics
}

// Name is the resource label used in logs and metrics.
func (r *Resource) Name() string {
	return r.name
}

// Get decodes the `data` field of GET {base}{path} into out.
func (r *Resource) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := r.do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// Post sends body as JSON and decodes the `data` field into out.
func (r *Resource) Post(ctx context.Context, path string, body, out any) error {
	_, err := r.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// Put sends body as JSON and decodes the `data` field into out.
func (r *Resource) Put(ctx context.Context, path string, body, out any) error {
	_, err := r.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (r *Resource) Delete(ctx context.Context, path string) error {
	_, err := r.do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

func (r *Resource) endpoint(path string, query url.Values) string {
	endpoint := r.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// do issues one JSON request and returns the envelope message.
func (r *Resource) do(ctx context.Context, method, path string, query url.Values, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode %s request", r.name))
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint(path, query), reader)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", r.name))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.send(req, out)
}

func (r *Resource) send(req *http.Request, out any) (string, error) {
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")

	ctx := r.logger.WithRequestID(req.Context(), requestID)
	ctx = r.logger.WithFields(ctx, map[string]any{
		"resource": r.name,
		"method":   req.Method,
		"path":     req.URL.Path,
	})

	start := time.Now()
	resp, err := r.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.ObserveRequest(r.name, req.Method, 0, elapsed)
		if typed := pkgerrors.As(err); typed != nil {
			return "", typed
		}
		r.logger.Warn(r.logger.WithField(ctx, "error", err.Error()), "api request failed before response")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, networkErrorMessage)
	}
	defer func() { _ = resp.Body.Close() }()

	r.metrics.ObserveRequest(r.name, req.Method, resp.StatusCode, elapsed)
	r.logger.Debug(r.logger.WithFields(ctx, map[string]any{
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	}), "api request completed")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, networkErrorMessage)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := newAPIError(resp.StatusCode, raw)
		return "", pkgerrors.Wrap(pkgerrors.CodeForStatus(resp.StatusCode), apiErr, fmt.Sprintf("%s %s request failed", req.Method, r.name))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", r.name))
	}
	if out != nil && hasData(envelope.Data) {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s data", r.name))
		}
	}
	return envelope.Message, nil
}

func hasData(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
