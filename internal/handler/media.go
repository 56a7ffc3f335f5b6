package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"talksphere/internal/httputil"
	"talksphere/internal/model"
	"talksphere/internal/service"
	"talksphere/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService // nil when R2 is not configured
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// PresignPostUpload handles POST /media/posts/presign
// Returns a presigned URL for uploading a post image directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.mediaService == nil {
		httputil.WriteBadRequestWithCode(w, model.CodeMediaDisabled, "Media uploads are not configured")
		return
	}

	var req model.PresignImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		httputil.WriteBadRequest(w, "contentType is required")
		return
	}

	res, err := h.mediaService.PresignPostImage(r.Context(), userID, req)
	if err != nil {
		writeMediaError(w, err, userID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// UploadPostImage handles POST /media/posts
// Accepts a multipart "file" field and stores it in R2.
func (h *MediaHandler) UploadPostImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.mediaService == nil {
		httputil.WriteBadRequestWithCode(w, model.CodeMediaDisabled, "Media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxPostImageSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	url, err := h.mediaService.UploadPostImage(r.Context(), userID, file, header)
	if err != nil {
		writeMediaError(w, err, userID)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func writeMediaError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
	default:
		log.Printf("[ERROR] Media handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to upload image")
	}
}
