package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	apiURL      = "https://api.telegram.org"
	userAgent   = "spigell/hh-screener"
	contentType = "application/json"

	methodGetUpdates    = "getUpdates"
	methodSendMessage   = "sendMessage"
	methodDeleteWebhook = "deleteWebhook"
)

// Client talks to the Telegram Bot API.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		// Must outlive the long polling timeout.
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// APIError is a refusal reported by the Bot API itself.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %ds", e.RetryAfter)
	}
	return msg
}

type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]*Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "channel_post"},
	}

	var items []interface{}
	if err := c.call(ctx, methodGetUpdates, payload, &items); err != nil {
		return nil, err
	}

	var updates []*Update
	if err := mapstructure.Decode(items, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}

	return updates, nil
}

// SendMessage posts plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}

	return c.call(ctx, methodSendMessage, payload, nil)
}

// DeleteWebhook switches the bot to getUpdates mode, optionally dropping the backlog.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.call(ctx, methodDeleteWebhook, map[string]interface{}{"drop_pending_updates": dropPending}, nil)
}

// Send implements channel.Sender. The identity is the chat id.
func (c *Client) Send(ctx context.Context, identity, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(identity), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", identity, err)
	}

	return c.SendMessage(ctx, chatID, text)
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req = c.setHeaders(req)

	resp, err := c.request(req, method)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope response
	if err := json.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("bad status: %s", resp.Status)
		}
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	if !envelope.OK {
		apiErr := &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		return apiErr
	}

	if target == nil {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(envelope.Result))
	// Chat ids do not survive a float64 round trip.
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}

	return nil
}

func (c *Client) request(req *http.Request, method string) (*http.Response, error) {
	// The URL carries the token; only the method name is logged.
	c.logger.Debug("make request", zap.String("method", method))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)

	return req
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.APIURL, "/"), c.token, method)
}
