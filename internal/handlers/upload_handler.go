package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/storage"
	"github.com/senyabanana/furniture-market/internal/utils"
)

const maxPhotoBytes = 10 << 20

// PhotoUploader сохраняет фотографию и возвращает её URL.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, ownerID string, body io.Reader, size int64, contentType string) (string, error)
}

// UploadHandler принимает фотографии для заявок.
type UploadHandler struct {
	handler
	Storage PhotoUploader
}

func NewUploadHandler(storage PhotoUploader, logger *slog.Logger, timeout time.Duration) *UploadHandler {
	return &UploadHandler{
		handler: handler{Logger: logger, Timeout: timeout},
		Storage: storage,
	}
}

// UploadPhoto обрабатывает multipart-запрос с полем photo.
func (h *UploadHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	if !actor.IsClient() {
		h.fail(w, r, "upload photo", models.NewAuthorizationError(models.WrongRole, "only clients can upload request photos"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<16)
	file, header, err := r.FormFile("photo")
	if err != nil {
		h.fail(w, r, "upload photo", models.NewValidationError("photo file not found in the request"))
		return
	}
	defer file.Close()

	if header.Size > maxPhotoBytes {
		h.fail(w, r, "upload photo", models.NewValidationError("photo must be at most 10MB"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.AllowedPhotoType(contentType) {
		h.fail(w, r, "upload photo", models.NewValidationError("photo must be a jpeg, png or webp image"))
		return
	}

	url, err := h.Storage.UploadPhoto(ctx, actor.ID, file, header.Size, contentType)
	if err != nil {
		h.fail(w, r, "upload photo", err)
		return
	}
	utils.SendJSON(w, http.StatusCreated, map[string]string{"url": url})
}
