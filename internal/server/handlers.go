package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platebook/platebook/internal/domain"
	"github.com/platebook/platebook/internal/storage"
)

type stateResponse struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	HasPhoto  bool       `json:"hasPhoto"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type progressResponse struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

type relayStatus struct {
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	MessageID int64  `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type statePhotoResponse struct {
	Code     string           `json:"code"`
	Progress progressResponse `json:"progress"`
	Relay    *relayStatus     `json:"relay,omitempty"`
}

type galleryItemResponse struct {
	ID        int64     `json:"id"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// readUpload extracts the image bytes from either a multipart "photo" field
// or a raw request body.
func readUpload(c echo.Context) (data []byte, mimeType, filename string, err error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, "multipart/form-data") {
		fileHeader, err := c.FormFile("photo")
		if err != nil {
			return nil, "", "", err
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, "", "", err
		}
		defer file.Close()

		data, err = io.ReadAll(file)
		if err != nil {
			return nil, "", "", err
		}
		return data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename, nil
	}

	data, err = io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, "", "", err
	}
	return data, contentType, "", nil
}

// imageContentType labels stored bytes for the wire. Normalized photos are
// JPEG, but the normalizer can fall back to the original upload.
func imageContentType(data []byte) string {
	return http.DetectContentType(data)
}

// State handlers

func (s *Service) listStatesHandler(c echo.Context) error {
	ctx := c.Request().Context()

	states := domain.States()
	out := make([]stateResponse, 0, len(states))
	for _, state := range states {
		entry := stateResponse{Code: state.Code, Name: state.Name}
		photo, err := s.store.GetStatePhoto(ctx, state.Code)
		if err == nil {
			entry.HasPhoto = true
			entry.UpdatedAt = &photo.UpdatedAt
		} else if !storage.IsNotFound(err) {
			return err
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Service) getStatePhotoHandler(c echo.Context) error {
	code := strings.ToUpper(c.Param("code"))
	if !domain.IsValidStateCode(code) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown state code"})
	}

	photo, err := s.store.GetStatePhoto(c.Request().Context(), code)
	if storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no photo for " + code})
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, imageContentType(photo.Image), photo.Image)
}

func (s *Service) putStatePhotoHandler(c echo.Context) error {
	ctx := c.Request().Context()

	code := strings.ToUpper(c.Param("code"))
	state, ok := domain.StateByCode(code)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown state code"})
	}

	data, mimeType, filename, err := readUpload(c)
	if err != nil || len(data) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "image data is required"})
	}

	result := s.norm.Normalize(ctx, data, mimeType, filename)
	if err := s.store.PutStatePhoto(ctx, code, result.Data); err != nil {
		return err
	}

	count, err := s.store.CountStatesWithPhotos(ctx)
	if err != nil {
		return err
	}

	resp := statePhotoResponse{
		Code:     code,
		Progress: progressResponse{Count: count, Total: domain.StateCount},
	}

	// The photo is durably stored at this point; relaying is best-effort
	// and its failure never affects the local write.
	caption := fmt.Sprintf("%s (%s)", state.Name, state.Code)
	resp.Relay = s.relayStored(ctx, result.Data, result.MimeType, caption)

	return c.JSON(http.StatusOK, resp)
}

func (s *Service) progressHandler(c echo.Context) error {
	count, err := s.store.CountStatesWithPhotos(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progressResponse{Count: count, Total: domain.StateCount})
}

// relayStored forwards a just-stored photo when a share code preference
// exists. It returns nil when relaying is suppressed entirely.
func (s *Service) relayStored(ctx context.Context, image []byte, mimeType, caption string) *relayStatus {
	shareCode, err := s.store.GetSetting(ctx, storage.ShareCodeKey)
	if err != nil {
		// No stored share code: photos stay local.
		return nil
	}

	status := &relayStatus{Attempted: true}
	switch {
	case !s.relay.Configured():
		status.Error = "telegram is not configured"
	case s.cfg.TelegramSharingCode != "" && shareCode != s.cfg.TelegramSharingCode:
		status.Error = "share code mismatch"
	default:
		messageID, err := s.relay.SendPhoto(ctx, image, mimeType, caption)
		if err != nil {
			s.log.Warn().Err(err).Msg("relay failed; photo remains stored locally")
			status.Error = err.Error()
		} else {
			status.OK = true
			status.MessageID = messageID
		}
	}
	return status
}

// Gallery handlers

func (s *Service) addGalleryPhotoHandler(c echo.Context) error {
	ctx := c.Request().Context()

	data, mimeType, filename, err := readUpload(c)
	if err != nil || len(data) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "image data is required"})
	}

	result := s.norm.Normalize(ctx, data, mimeType, filename)
	id, err := s.store.AddGalleryPhoto(ctx, result.Data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, galleryItemResponse{
		ID:        id,
		Bytes:     len(result.Data),
		CreatedAt: time.Now(),
	})
}

func (s *Service) listGalleryHandler(c echo.Context) error {
	photos, err := s.store.ListGalleryPhotos(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]galleryItemResponse, 0, len(photos))
	for _, photo := range photos {
		out = append(out, galleryItemResponse{
			ID:        photo.ID,
			Bytes:     len(photo.Image),
			CreatedAt: photo.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Service) getGalleryPhotoHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid gallery id"})
	}

	photo, err := s.store.GetGalleryPhoto(c.Request().Context(), id)
	if storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no such gallery photo"})
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, imageContentType(photo.Image), photo.Image)
}

func (s *Service) deleteGalleryPhotoHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid gallery id"})
	}

	// Deleting an absent id is a no-op success.
	if err := s.store.DeleteGalleryPhoto(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Share code handlers

type shareCodeBody struct {
	ShareCode string `json:"shareCode"`
}

func (s *Service) getShareCodeHandler(c echo.Context) error {
	code, err := s.store.GetSetting(c.Request().Context(), storage.ShareCodeKey)
	if storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no share code set"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, shareCodeBody{ShareCode: code})
}

func (s *Service) putShareCodeHandler(c echo.Context) error {
	var body shareCodeBody
	if err := c.Bind(&body); err != nil || body.ShareCode == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "shareCode is required"})
	}

	if err := s.store.SetSetting(c.Request().Context(), storage.ShareCodeKey, body.ShareCode); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Service) deleteShareCodeHandler(c echo.Context) error {
	if err := s.store.DeleteSetting(c.Request().Context(), storage.ShareCodeKey); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
