package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Credentials identify the caller. Token is sent as a bearer token; User is
// sent in the X-Remote-User header for servers running behind a trusted
// proxy.
type Credentials struct {
	Token string
	User  string
}

// Client is the queryex API HTTP client.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	verbose    bool
}

// NewClient creates a new API client. The timeout covers the server's report
// timeout.
func NewClient(baseURL string, creds Credentials, verbose bool) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
		verbose: verbose,
	}
}

// Do performs an HTTP request and returns the response body.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}
	if c.creds.User != "" {
		req.Header.Set("X-Remote-User", c.creds.User)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.verbose {
		fmt.Printf(">>> %s %s\n", method, url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if c.verbose {
		fmt.Printf("<<< %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, parseAPIError(resp.StatusCode, respBody)
	}

	return respBody, resp.StatusCode, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	data, _, err := c.Do(ctx, http.MethodGet, path, nil)
	return data, err
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	data, _, err := c.Do(ctx, http.MethodPost, path, body)
	return data, err
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []FieldError
}

// FieldError is one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	for _, d := range e.Details {
		msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
	}
	return msg
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
		if len(parsed.Details) > 0 {
			_ = json.Unmarshal(parsed.Details, &apiErr.Details)
		}
	}

	if apiErr.Message == "" {
		switch statusCode {
		case http.StatusUnauthorized:
			apiErr.Message = "unauthorized: invalid or missing credentials"
		case http.StatusNotFound:
			apiErr.Message = "resource not found"
		default:
			apiErr.Message = fmt.Sprintf("API error: %d %s", statusCode, http.StatusText(statusCode))
		}
	}

	return apiErr
}

// Response types matching server handler structs.

type PrincipalResponse struct {
	Username   string   `json:"username"`
	Groups     []string `json:"groups"`
	OrgUnit    string   `json:"org_unit,omitempty"`
	Admin      bool     `json:"admin"`
	ResolvedAt string   `json:"resolved_at"`
}

type ReportResponse struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Path           []string `json:"path"`
	RawPath        string   `json:"raw_path"`
	ParameterNames []string `json:"parameter_names"`
	Editable       bool     `json:"editable"`
	SQL            string   `json:"sql,omitempty"`
}

type ReportListResponse struct {
	Data       []ReportResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

type ParameterResponse struct {
	Name          string   `json:"name"`
	BoundName     string   `json:"bound_name"`
	Order         int      `json:"order"`
	Type          string   `json:"type"`
	Value         *string  `json:"value,omitempty"`
	DefaultValue  *string  `json:"default_value,omitempty"`
	StaticChoices []string `json:"static_choices,omitempty"`
	MultiSelect   bool     `json:"multi_select"`
}

type OptionResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ReportDetailResponse struct {
	ReportResponse
	Parameters []ParameterResponse         `json:"parameters"`
	Options    map[string][]OptionResponse `json:"options,omitempty"`
}

type MenuNode struct {
	Name     string      `json:"name"`
	FullPath string      `json:"full_path"`
	ReportID *int        `json:"report_id,omitempty"`
	Title    string      `json:"title,omitempty"`
	Children []*MenuNode `json:"children,omitempty"`
}

type MenuResponse struct {
	Items []*MenuNode `json:"items"`
}

type ColumnResponse struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

type ExecuteResponse struct {
	ReportID   int              `json:"report_id"`
	Columns    []ColumnResponse `json:"columns"`
	Rows       [][]any          `json:"rows"`
	RowCount   int              `json:"row_count"`
	Truncated  bool             `json:"truncated"`
	ExecutedAt string           `json:"executed_at"`
}

// Arg is one named report argument.
type Arg struct {
	Name   string   `json:"name"`
	Value  *string  `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

type ExecuteRequest struct {
	Args []Arg `json:"args"`
}
