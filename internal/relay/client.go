// Package relay forwards captured plate photos to a Telegram chat.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// DefaultBaseURL is the Telegram Bot API root.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultTimeout bounds the relay call. Relaying is best-effort with no
// retry, so a bound keeps a dead upstream from pinning the request.
const DefaultTimeout = 30 * time.Second

// photoFilename is the form filename Telegram sees for every relayed photo.
const photoFilename = "plate.jpg"

// Client is an HTTP client for the Telegram sendPhoto endpoint.
type Client struct {
	BotToken   string
	ChatID     string
	HTTPClient *http.Client

	// BaseURL overrides the Telegram API root when non-empty; tests point
	// it at an httptest server.
	BaseURL string
}

// NewClient creates a relay client for the given bot and chat.
func NewClient(botToken, chatID string) *Client {
	return &Client{
		BotToken: botToken,
		ChatID:   chatID,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Configured reports whether both credentials are present. An unconfigured
// client cannot relay anything.
func (c *Client) Configured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

func (c *Client) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/bot%s/sendPhoto", base, c.BotToken)
}

// apiResponse is the subset of the Telegram response the relay cares about.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendPhoto relays one image as a multipart sendPhoto request and returns
// the remote message id.
func (c *Client) SendPhoto(ctx context.Context, image []byte, mimeType, caption string) (int64, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("chat_id", c.ChatID); err != nil {
		return 0, fmt.Errorf("failed to build form: %w", err)
	}
	if caption != "" {
		if err := form.WriteField("caption", caption); err != nil {
			return 0, fmt.Errorf("failed to build form: %w", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, photoFilename))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return 0, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return 0, fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint(), &body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read relay response: %w", err)
	}

	var parsed apiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		reason := parsed.Description
		if reason == "" {
			reason = resp.Status
		}
		return 0, fmt.Errorf("telegram error: %s", reason)
	}

	return parsed.Result.MessageID, nil
}
