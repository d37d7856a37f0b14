package syncapi

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/imroc/req/v3"
	"github.com/manavgt54/idesync/internal/utils"
	"github.com/manavgt54/idesync/internal/version"
)

const (
	HeaderUserAgent = "User-Agent"
	HeaderVersion   = "X-IDESync-Version"
	HeaderDeviceId  = "X-IDESync-Device-Id"
)

var UserAgent = fmt.Sprintf("IDESync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

const v1Status = "/api/v1/status"

// Config holds the connection settings for the sync backend.
type Config struct {
	// BaseURL is the root URL of the sync backend.
	BaseURL string

	// Token is an optional bearer token sent with every request.
	Token string
}

// Client talks to the sync backend over HTTP.
type Client struct {
	http    *req.Client
	baseURL string
}

// New creates a new sync backend client
func New(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, ErrNoServerURL
	}

	http := req.C().
		SetBaseURL(cfg.BaseURL).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if cfg.Token != "" {
		http.SetCommonBearerAuthToken(cfg.Token)
	}

	return &Client{
		http:    http,
		baseURL: cfg.BaseURL,
	}, nil
}

// SetToken replaces the bearer token used for API calls
func (c *Client) SetToken(token string) {
	c.http.SetCommonBearerAuthToken(token)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close terminates all idle connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type HealthcheckResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Healthcheck checks whether the sync backend is reachable and serving
func (c *Client) Healthcheck(ctx context.Context) (*HealthcheckResponse, error) {
	var res HealthcheckResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&res).
		Get(v1Status)

	if err := handleAPIError(resp, err, "healthcheck"); err != nil {
		return nil, err
	}

	return &res, nil
}
