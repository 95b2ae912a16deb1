package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"strava_sync/internal/domain"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"

	// StatusReady is the upload status once the activity has been created.
	StatusReady = "Your activity is ready."
)

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Client talks to the Strava v3 API. The http.Client it is built with must
// already carry the OAuth credentials.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	hc := *httpClient
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &Client{
		httpClient:   &hc,
		baseURL:      cfg.BaseURL,
		pollInterval: cfg.PollInterval,
		logger:       logger.With("component", "strava_client"),
	}
}

type ListParams struct {
	Page    int
	PerPage int
	Before  *time.Time
	After   *time.Time
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	if p.Before != nil {
		q.Set("before", strconv.FormatInt(p.Before.Unix(), 10))
	}
	if p.After != nil {
		q.Set("after", strconv.FormatInt(p.After.Unix(), 10))
	}
	return q
}

// ListActivities fetches one page of the athlete's activities.
func (c *Client) ListActivities(ctx context.Context, params ListParams) ([]APIActivity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/athlete/activities?"+params.query().Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var activities []APIActivity
	if err := c.do(req, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// UpdateActivity patches type, gear and trainer flag of an activity.
func (c *Client) UpdateActivity(ctx context.Context, id int64, update domain.ActivityUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/activities/%d", c.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Upload posts the file and then polls the upload until Strava either reports
// an error or the activity is ready.
func (c *Client) Upload(ctx context.Context, task domain.UploadTask) (*domain.UploadResult, error) {
	upload, err := c.postUpload(ctx, task)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("file uploaded, waiting for processing",
		"file", task.FilePath,
		"upload_id", upload.ID,
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !uploadDone(upload) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		upload, err = c.GetUpload(ctx, upload.ID)
		if err != nil {
			return nil, err
		}
	}

	result := &domain.UploadResult{ExternalID: upload.ExternalID}
	if upload.ActivityID != nil {
		result.ActivityID = *upload.ActivityID
	}
	if upload.Error != nil {
		result.Error = *upload.Error
	}
	return result, nil
}

func uploadDone(u *APIUpload) bool {
	return (u.Error != nil && *u.Error != "") || u.Status == StatusReady
}

func (c *Client) GetUpload(ctx context.Context, id int64) (*APIUpload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/uploads/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var upload APIUpload
	if err := c.do(req, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *Client) postUpload(ctx context.Context, task domain.UploadTask) (*APIUpload, error) {
	file, err := os.Open(task.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(task.FilePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}

	trainer := task.Trainer != nil && *task.Trainer
	fields := map[string]string{
		"data_type": string(task.DataType),
		"trainer":   strconv.FormatBool(trainer),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var upload APIUpload
	if err := c.do(req, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "strava-sync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Usage:      resp.Header.Get("X-RateLimit-Usage"),
			Limit:      resp.Header.Get("X-RateLimit-Limit"),
		}
		var fault apiFault
		if err := json.NewDecoder(resp.Body).Decode(&fault); err == nil {
			apiErr.Message = fault.Message
		}
		c.logger.Debug("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"rate_limit_usage", apiErr.Usage,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
