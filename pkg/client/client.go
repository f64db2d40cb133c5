// Package client calls a running credpulse scoring service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/mchmarny/credpulse/pkg/model"
	"github.com/mchmarny/credpulse/pkg/predict"
	"github.com/mchmarny/credpulse/pkg/registry"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "credpulse-client"
	errorBodyMax     = 1 << 16
)

// ErrUnexpectedStatus is returned for error responses without a known code.
var ErrUnexpectedStatus = errors.New("unexpected response status")

var codeErrors = map[string]error{
	"missing_field":               predict.ErrMissingField,
	"invalid_field":               predict.ErrInvalidField,
	"tier_mismatch":               predict.ErrTierMismatch,
	"unknown_college":             registry.ErrUnknownEntity,
	"inconsistent_feature_vector": model.ErrInconsistentFeatureVector,
}

// Bundle describes the artifact the service is serving.
type Bundle struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New returns a client for the service at baseURL, e.g. http://localhost:8080.
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid service url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url %q: scheme must be http or https", baseURL)
	}

	hc := &http.Client{
		Timeout: timeoutInSeconds * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          maxIdleConns,
			IdleConnTimeout:       timeoutInSeconds * time.Second,
			ResponseHeaderTimeout: timeoutInSeconds * time.Second,
		},
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		hc:      hc,
	}, nil
}

// Health returns nil when the service answers its health check.
func (c *Client) Health(ctx context.Context) error {
	var v map[string]string
	return c.do(ctx, http.MethodGet, "/healthz", nil, &v)
}

// Bundle returns the version and feature order being served.
func (c *Client) Bundle(ctx context.Context) (*Bundle, error) {
	var b Bundle
	if err := c.do(ctx, http.MethodGet, "/api/v1/bundle", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Predict scores req remotely. Service errors are mapped back to the
// sentinel errors of the predict, registry and model packages.
func (c *Client) Predict(ctx context.Context, req *predict.Request) (*predict.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body", predict.ErrMissingField)
	}
	var res predict.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/predict", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating HTTP %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", clientAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	if dump, err := httputil.DumpResponse(resp, false); err == nil {
		slog.Debug("error response", "dump", string(dump))
	}

	var e errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, errorBodyMax)).Decode(&e); err != nil {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	if sentinel, ok := codeErrors[e.Code]; ok {
		return fmt.Errorf("%w: %s", sentinel, e.Error)
	}
	return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, e.Error)
}
