package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type relayRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
	Caption     string `json:"caption"`
	ShareCode   string `json:"shareCode"`
}

type telegramResult struct {
	MessageID int64 `json:"message_id"`
}

type relayResponse struct {
	OK       bool            `json:"ok"`
	Error    string          `json:"error,omitempty"`
	Telegram *telegramResult `json:"telegram,omitempty"`
}

// relayPhotoHandler forwards a base64 image to Telegram. Authentication is
// an exact match of the client's share code against the configured sharing
// code; when no code is configured any request passes. Failures are
// best-effort for the caller: the photo is already stored locally before a
// client calls this endpoint.
func (s *Service) relayPhotoHandler(c echo.Context) error {
	if !s.relay.Configured() {
		return c.JSON(http.StatusServiceUnavailable, relayResponse{
			OK:    false,
			Error: "Telegram is not configured. Set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID env vars.",
		})
	}

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.Contains(contentType, "application/json") {
		return c.JSON(http.StatusUnsupportedMediaType, relayResponse{OK: false, Error: "Unsupported Media Type"})
	}

	// A malformed body is treated as an empty payload; the field checks
	// below produce the caller-facing errors.
	var payload relayRequest
	_ = c.Bind(&payload)

	if s.cfg.TelegramSharingCode != "" && payload.ShareCode != s.cfg.TelegramSharingCode {
		return c.JSON(http.StatusForbidden, relayResponse{OK: false, Error: "Forbidden"})
	}

	if payload.ImageBase64 == "" {
		return c.JSON(http.StatusBadRequest, relayResponse{OK: false, Error: "imageBase64 is required"})
	}

	image, err := base64.StdEncoding.DecodeString(payload.ImageBase64)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, relayResponse{OK: false, Error: "Internal Server Error"})
	}

	messageID, err := s.relay.SendPhoto(c.Request().Context(), image, payload.MimeType, payload.Caption)
	if err != nil {
		s.log.Error().Err(err).Msg("telegram upstream error")
		return c.JSON(http.StatusBadGateway, relayResponse{OK: false, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, relayResponse{
		OK:       true,
		Telegram: &telegramResult{MessageID: messageID},
	})
}
