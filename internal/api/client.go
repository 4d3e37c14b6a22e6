package api

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
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
)

// Client is a preset store backed by a host API
type Client struct {
	baseURL string
	apiID   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the host at baseURL. apiID is sent with
// every save so the host can tell which tool wrote the preset.
func NewClient(baseURL, apiID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiID:   apiID,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("client"),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, "", err
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, requestID, nil
}

// do sends the request and returns the status and body
func (c *Client) do(req *http.Request, requestID string) (int, []byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.Debug("host request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// statusError describes a non-2xx reply, keeping the host's message when it sent one
func statusError(status int, body []byte) error {
	var envelope errors.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("host responded %d: %s", status, envelope.Error.Message)
	}
	return fmt.Errorf("host responded %d", status)
}

// List returns the summaries of every preset on the host
func (c *Client) List(ctx context.Context) ([]models.Summary, error) {
	req, id, err := c.newRequest(ctx, http.MethodGet, "/api/presets", nil)
	if err != nil {
		return nil, errors.NetworkError("list presets", err)
	}
	status, body, err := c.do(req, id)
	if err != nil {
		return nil, errors.NetworkError("list presets", err)
	}
	if !isSuccess(status) {
		return nil, errors.NetworkError("list presets", statusError(status, body))
	}

	var list PresetList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "host returned an invalid preset list")
	}
	if list.Presets == nil {
		list.Presets = []models.Summary{}
	}
	return list.Presets, nil
}

// Get loads one preset from the host
func (c *Client) Get(ctx context.Context, name string) (*models.Preset, error) {
	req, id, err := c.newRequest(ctx, http.MethodGet, "/api/presets/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, errors.NetworkError("get preset", err)
	}
	status, body, err := c.do(req, id)
	if err != nil {
		return nil, errors.NetworkError("get preset", err).WithContext("preset", name)
	}
	if status == http.StatusNotFound {
		return nil, errors.NotFoundError(fmt.Sprintf("preset '%s'", name))
	}
	if !isSuccess(status) {
		return nil, errors.NetworkError("get preset", statusError(status, body)).WithContext("preset", name)
	}

	var preset models.Preset
	if err := json.Unmarshal(body, &preset); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileCorrupted, fmt.Sprintf("host returned an invalid preset '%s'", name))
	}
	preset.Name = name
	return &preset, nil
}

// Persist saves a preset through the host save endpoint. Any non-2xx reply
// is a PERSIST_FAILURE.
func (c *Client) Persist(ctx context.Context, name string, preset *models.Preset) error {
	if preset == nil {
		return errors.ValidationError("preset body is required")
	}
	payload := struct {
		APIID  string         `json:"apiId"`
		Name   string         `json:"name"`
		Preset *models.Preset `json:"preset"`
	}{c.apiID, name, preset}

	req, id, err := c.newRequest(ctx, http.MethodPost, "/api/presets/save", payload)
	if err != nil {
		return errors.PersistError(name, err)
	}
	status, body, err := c.do(req, id)
	if err != nil {
		return errors.PersistError(name, errors.NetworkError("save preset", err))
	}
	if !isSuccess(status) {
		return errors.PersistError(name, statusError(status, body)).
			WithContext("status", status).
			WithContext("request_id", id)
	}
	return nil
}
