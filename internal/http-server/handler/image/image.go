package image

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"thumbnail-server/internal/domain"
	"thumbnail-server/internal/http-server/handler/image/dto"
	image_uc "thumbnail-server/internal/usecase/image"
	warm_uc "thumbnail-server/internal/usecase/warm"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxWarmBody = 4 << 10

	thumbStatusHeader = "X-Thumb-Status"
)

type ImageHandler struct {
	usecase  imageUsecase
	warm     warmUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

// NewImageHandler builds the handler; warm may be nil when cache warming is
// switched off.
func NewImageHandler(usecase imageUsecase, warm warmUsecase, logger *zlog.Zerolog) *ImageHandler {
	return &ImageHandler{
		usecase:  usecase,
		warm:     warm,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	rules := map[string]func(string) bool{
		"imagefile": domain.ValidFile,
		"dimension": domain.ValidDimension,
	}
	for tag, rule := range rules {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// GetImage serves the full image, or the thumbnail when both width and height
// are given, rendering it on a cache miss.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	req := dto.GetImageRequest{
		File:   query.Get("file"),
		Width:  query.Get("width"),
		Height: query.Get("height"),
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, r, err)
		return
	}

	if !h.usecase.IsImageAvailable(ctx, req.File) {
		h.logger.Info().Str("file", req.File).Msg("Image not found")
		h.respondErrorWithNames(w, r, http.StatusNotFound, fmt.Sprintf("Image %q is not available", req.File))
		return
	}

	q := domain.ImageQuery{File: req.File, Width: req.Width, Height: req.Height}

	if q.IsThumb() {
		path, status, err := h.usecase.EnsureThumb(ctx, q)
		if err != nil {
			h.handleThumbError(w, err, q)
			return
		}
		w.Header().Set(thumbStatusHeader, string(status))
		h.serveImage(w, r, path)
		return
	}

	path, ok := h.usecase.GetImagePath(ctx, q)
	if !ok {
		h.respondErrorWithNames(w, r, http.StatusNotFound, fmt.Sprintf("Image %q is not available", req.File))
		return
	}
	h.serveImage(w, r, path)
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.NamesResponse{Names: h.usecase.AvailableImageNames(r.Context())})
}

// WarmThumbnail queues a thumbnail to be rendered by the worker.
func (h *ImageHandler) WarmThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.warm == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Thumbnail warming is disabled", nil)
		return
	}

	var req dto.WarmRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWarmBody)).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode warm request")
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, r, err)
		return
	}

	if !h.usecase.IsImageAvailable(ctx, req.File) {
		h.respondErrorWithNames(w, r, http.StatusNotFound, fmt.Sprintf("Image %q is not available", req.File))
		return
	}

	task, err := h.warm.Enqueue(ctx, domain.ImageQuery{File: req.File, Width: req.Width, Height: req.Height})
	if err != nil {
		if errors.Is(err, warm_uc.ErrQueueUnavailable) {
			h.logger.Warn().Err(err).Str("file", req.File).Msg("Warm queue unavailable")
			h.respondError(w, http.StatusServiceUnavailable, "Failed to queue thumbnail", nil)
			return
		}
		h.logger.Error().Err(err).Str("file", req.File).Msg("Failed to queue thumbnail")
		h.respondError(w, http.StatusInternalServerError, "Failed to queue thumbnail", nil)
		return
	}

	h.respondJSON(w, http.StatusAccepted, dto.WarmResponse{
		TaskID:    task.ID,
		File:      task.File,
		Width:     task.Width,
		Height:    task.Height,
		CreatedAt: task.CreatedAt,
	})
}

func (h *ImageHandler) serveImage(w http.ResponseWriter, r *http.Request, path string) {
	reader, err := h.usecase.OpenImage(r.Context(), path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("Failed to open image")
		h.respondError(w, http.StatusInternalServerError, "Failed to read image", nil)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", domain.ImageContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("Failed to stream image")
	}
}

func (h *ImageHandler) handleThumbError(w http.ResponseWriter, err error, q domain.ImageQuery) {
	switch {
	case errors.Is(err, image_uc.ErrResizeFailed):
		h.logger.Error().Err(err).Str("file", q.File).Str("width", q.Width).Str("height", q.Height).Msg("Thumbnail creation failed")
		h.respondError(w, http.StatusInternalServerError, rootCause(err).Error(), nil)
	case errors.Is(err, image_uc.ErrIncompleteQuery),
		errors.Is(err, domain.ErrFileRequired),
		errors.Is(err, domain.ErrInvalidFile),
		errors.Is(err, domain.ErrInvalidDimension):
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Str("file", q.File).Msg("Failed to get thumbnail")
		h.respondError(w, http.StatusInternalServerError, "Failed to get thumbnail", nil)
	}
}

// rootCause strips the wrapping added on the way up, which carries host
// paths. The full chain is logged instead.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func (h *ImageHandler) respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	fe := verrs[0]
	switch {
	case fe.Field() == "File" && fe.Tag() == "required":
		h.respondErrorWithNames(w, r, http.StatusBadRequest, domain.ErrFileRequired.Error())
	case fe.Field() == "File":
		h.respondError(w, http.StatusBadRequest, domain.ErrInvalidFile.Error(), nil)
	default:
		h.respondError(w, http.StatusBadRequest, domain.ErrInvalidDimension.Error(), nil)
	}
}

func (h *ImageHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Interface("data", data).Msg("Failed to encode response")
	}
}

func (h *ImageHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}

// respondErrorWithNames lists the images that can be asked for instead.
func (h *ImageHandler) respondErrorWithNames(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, status, dto.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Available: h.usecase.AvailableImageNames(r.Context()),
	})
}
