package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lanrat/wireguard-warp-generator/pkg/api"
	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 1 << 20

// RegistrationOptions are the caller-supplied request inputs.
type RegistrationOptions struct {
	DeviceType string
	Locale     string
	TOS        string
	InstallID  string
}

// Client talks to the device registration endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a registration client. A zero timeout leaves the
// request bounded only by ctx.
func NewClient(endpoint string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// Register binds publicKey to a new device identity. It makes exactly one
// attempt: retrying could register the same key twice.
func (c *Client) Register(ctx context.Context, publicKey string, opts RegistrationOptions) (*api.RegisterResponse, error) {
	reqBody, err := json.Marshal(api.RegisterRequest{
		Key:         publicKey,
		InstallID:   opts.InstallID,
		WarpEnabled: true,
		TOS:         opts.TOS,
		Type:        opts.DeviceType,
		Locale:      opts.Locale,
	})
	if err != nil {
		return nil, errors.NewRegistrationError(0, nil, "failed to marshal registration request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.NewRegistrationError(0, nil, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "registration request", "url", c.endpoint, "body", string(reqBody))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.HTTPRequest(ctx, http.MethodPost, c.endpoint, 0, time.Since(start))
		return nil, errors.NewRegistrationError(0, nil, "failed to make request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.logger.HTTPRequest(ctx, http.MethodPost, c.endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.NewRegistrationError(resp.StatusCode, body, "failed to read response body", err)
	}

	c.logger.DebugContext(ctx, "registration response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewRegistrationError(resp.StatusCode, body,
			fmt.Sprintf("endpoint returned unexpected status %d", resp.StatusCode), nil)
	}

	var regResp api.RegisterResponse
	if err := json.Unmarshal(body, &regResp); err != nil {
		return nil, errors.NewRegistrationError(resp.StatusCode, body, "failed to decode registration response", err)
	}

	return &regResp, nil
}
