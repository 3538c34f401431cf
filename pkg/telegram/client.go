// Package telegram implements the HTTP/WebSocket client for the message
// source gateway that fronts the platform session.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telereader/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// GatewayClient talks to the source gateway over HTTP for channel
// metadata and history pages, and over WebSocket for realtime events.
type GatewayClient struct {
	baseURL      string
	websocketURL string
	apiToken     string
	client       *http.Client
	logger       *logrus.Logger
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg types.ClientConfig) *GatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL:      cfg.BaseURL,
		websocketURL: cfg.WebsocketURL,
		apiToken:     cfg.APIToken,
		client:       &http.Client{Timeout: timeout},
		logger:       logrus.New(),
	}
}

// NewClientWithLogger creates a gateway client with a shared logger.
func NewClientWithLogger(cfg types.ClientConfig, logger *logrus.Logger) *GatewayClient {
	c := NewClient(cfg)
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *GatewayClient) ResolveChannel(ctx context.Context, channelID string) (*types.ChannelInfo, error) {
	var info types.ChannelInfo
	path := fmt.Sprintf("/api/channels/%s", url.PathEscape(channelID))
	if err := c.get(ctx, path, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to resolve channel %s: %w", channelID, err)
	}
	return &info, nil
}

func (c *GatewayClient) GetHeadMessageID(ctx context.Context, channelID string) (int64, error) {
	info, err := c.ResolveChannel(ctx, channelID)
	if err != nil {
		return 0, err
	}
	return info.HeadMessageID, nil
}

func (c *GatewayClient) FetchMessages(ctx context.Context, channelID string, afterID, maxID int64, limit int) ([]types.Message, error) {
	params := url.Values{}
	params.Set("afterId", strconv.FormatInt(afterID, 10))
	if maxID > 0 {
		params.Set("maxId", strconv.FormatInt(maxID, 10))
	}
	params.Set("limit", strconv.Itoa(limit))

	var page messagePage
	path := fmt.Sprintf("/api/channels/%s/messages", url.PathEscape(channelID))
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch messages for %s: %w", channelID, err)
	}
	return page.Messages, nil
}

func (c *GatewayClient) FetchMessagesByTime(ctx context.Context, channelID string, from, to time.Time, afterID int64, limit int) ([]types.Message, error) {
	params := url.Values{}
	params.Set("from", from.UTC().Format(time.RFC3339Nano))
	params.Set("to", to.UTC().Format(time.RFC3339Nano))
	params.Set("afterId", strconv.FormatInt(afterID, 10))
	params.Set("limit", strconv.Itoa(limit))

	var page messagePage
	path := fmt.Sprintf("/api/channels/%s/messages", url.PathEscape(channelID))
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch messages for %s: %w", channelID, err)
	}
	return page.Messages, nil
}

func (c *GatewayClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

type messagePage struct {
	Messages []types.Message `json:"messages"`
}

type apiError struct {
	Error string `json:"error"`
}

func (c *GatewayClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
