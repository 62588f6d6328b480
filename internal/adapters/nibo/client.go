// Package nibo is the HTTP client for the Nibo accounting API
// (https://api.nibo.com.br/empresas/v1).
//
// The API has a few rough edges this client papers over:
//   - upload responses carry the file id under varying key names,
//     sometimes nested, so the id is probed rather than decoded into a
//     fixed struct
//   - the attach endpoint's body shape is not firmly documented, so
//     known payload variants are tried in order until one is accepted
//   - schedule items come back in heterogeneous JSON shapes, normalized
//     here into the canonical matcher.Schedule before anything
//     downstream sees them
package nibo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// DefaultBaseURL is the production Nibo empresas API
const DefaultBaseURL = "https://api.nibo.com.br/empresas/v1"

// Config holds Nibo client configuration
type Config struct {
	APIKey  string
	UserID  string // optional, sent as X-User-Id when set
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Nibo API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userID     string
	logger     *slog.Logger
	calls      storage.APICallRepository // optional outbound call log
	runID      int64
}

// New creates a Nibo client. calls may be nil to disable API call
// logging.
func New(cfg Config, logger *slog.Logger, calls storage.APICallRepository) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil // retry chatter goes through our logger instead

	httpClient := rc.StandardClient()
	httpClient.Timeout = cfg.Timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userID:     cfg.UserID,
		logger:     logger,
		calls:      calls,
	}
}

// BindRun returns a copy of the client that tags logged API calls with
// the given reconcile run id.
func (c *Client) BindRun(runID int64) *Client {
	clone := *c
	clone.runID = runID
	return &clone
}

// UploadFile uploads a single file and returns the Nibo file id.
// POST /files, multipart/form-data, field "file".
func (c *Client) UploadFile(ctx context.Context, name string, data []byte, contentType string) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/files", &body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("upload of %s failed (%d): %s", name, resp.StatusCode, truncate(respBody))
	}

	// The response body is JSON on some routes and empty on others;
	// the file id also moves around between key names and nesting.
	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("upload of %s succeeded but response is not JSON: %s", name, truncate(respBody))
	}

	fileID := extractFileID(decoded)
	if fileID == "" {
		return nil, fmt.Errorf("upload of %s succeeded but no file id found in response: %s", name, truncate(respBody))
	}

	c.logger.Debug("uploaded file", "name", name, "file_id", fileID, "size", len(data))

	return &UploadResult{
		FileID: fileID,
		Name:   name,
		Size:   int64(len(data)),
	}, nil
}

// SearchSchedules fetches schedules of the given kind, normalized into
// the canonical shape.
// GET /schedules/{debit|credit} with OData-style query parameters.
func (c *Client) SearchSchedules(ctx context.Context, params SearchParams) ([]matcher.Schedule, error) {
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("invalid schedule kind: %q", params.Kind)
	}

	query := url.Values{}
	if filter := buildFilter(params); filter != "" {
		query.Set("$filter", filter)
	}
	if params.OrderBy != "" {
		query.Set("$orderby", params.OrderBy)
	}
	if params.Limit > 0 {
		query.Set("$top", fmt.Sprintf("%d", params.Limit))
	}

	endpoint := c.baseURL + "/schedules/" + string(params.Kind)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("schedule search failed (%d): %s", resp.StatusCode, truncate(respBody))
	}

	items, err := decodeScheduleItems(respBody)
	if err != nil {
		return nil, err
	}

	schedules := make([]matcher.Schedule, 0, len(items))
	for _, item := range items {
		schedules = append(schedules, normalizeSchedule(item))
	}

	c.logger.Debug("fetched schedules", "kind", params.Kind, "count", len(schedules))

	return schedules, nil
}

// attachPayloads are the request body shapes tried, in order, against
// the attach endpoint. The first accepted one wins.
func attachPayloads(fileIDs []string) []map[string]any {
	fileObjs := make([]map[string]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		fileObjs = append(fileObjs, map[string]string{"fileId": id})
	}
	return []map[string]any{
		{"filesIds": fileIDs},
		{"fileIds": fileIDs},
		{"files": fileObjs},
		{"ids": fileIDs},
	}
}

// AttachFiles attaches uploaded files to a schedule.
// POST /schedules/{kind}/{scheduleId}/files/attach (204 on success).
func (c *Client) AttachFiles(ctx context.Context, kind Kind, scheduleID string, fileIDs []string) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid schedule kind: %q", kind)
	}
	if scheduleID == "" {
		return fmt.Errorf("schedule id is required")
	}
	if len(fileIDs) == 0 {
		return fmt.Errorf("no file ids to attach")
	}

	endpoint := fmt.Sprintf("%s/schedules/%s/%s/files/attach", c.baseURL, kind, scheduleID)

	var lastStatus int
	var lastBody []byte
	for _, payload := range attachPayloads(fileIDs) {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), "application/json")
		if err != nil {
			return err
		}
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.logger.Debug("attached files", "schedule_id", scheduleID, "file_count", len(fileIDs))
			return nil
		}

		// A 400 that complains about the files themselves will not be
		// fixed by another payload shape.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(respBody)), "file") {
			return fmt.Errorf("attach to %s rejected (%d): %s", scheduleID, resp.StatusCode, truncate(respBody))
		}

		lastStatus = resp.StatusCode
		lastBody = respBody
	}

	return fmt.Errorf("attach to %s failed, last response (%d): %s", scheduleID, lastStatus, truncate(lastBody))
}

// do executes one HTTP request with auth headers, timing and call logging
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if c.calls != nil {
		call := &storage.APICall{
			RunID:      c.runID,
			Method:     method,
			URL:        endpoint,
			DurationMs: duration.Milliseconds(),
		}
		if err != nil {
			call.Error = err.Error()
		} else {
			call.StatusCode = resp.StatusCode
		}
		if logErr := c.calls.LogAPICall(call); logErr != nil {
			c.logger.Warn("failed to log API call", "error", logErr)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("nibo request %s %s failed: %w", method, endpoint, err)
	}
	return resp, nil
}

// truncate keeps error messages readable when the API returns HTML pages
func truncate(body []byte) string {
	const max = 300
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
