package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"talksphere/internal/httputil"
	"talksphere/internal/model"
	"talksphere/internal/service"
	"talksphere/internal/transport/http/middleware"
)

type AnnouncementHandler struct {
	announcementService *service.AnnouncementService
}

func NewAnnouncementHandler(announcementService *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

// List handles GET /announcements
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.announcementService.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] List announcements handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to get announcements")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// Create handles POST /announcements (admin)
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	var req model.CreateAnnouncementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.announcementService.Create(r.Context(), adminID, req)
	if err != nil {
		if errors.Is(err, model.ErrAnnouncementInvalid) {
			httputil.WriteBadRequest(w, "Title and content are required")
			return
		}
		log.Printf("[ERROR] Create announcement handler: user=%s err=%v", adminID, err)
		httputil.WriteInternalError(w, "Failed to create announcement")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// Delete handles DELETE /announcements/{id} (admin)
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	err := h.announcementService.Delete(r.Context(), chi.URLParam(r, "id"), adminID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidID):
			httputil.WriteBadRequest(w, "Invalid announcement ID")
		case errors.Is(err, model.ErrAnnouncementNotFound):
			httputil.WriteNotFound(w, "Announcement not found")
		default:
			log.Printf("[ERROR] Delete announcement handler: user=%s err=%v", adminID, err)
			httputil.WriteInternalError(w, "Failed to delete announcement")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Announcement deleted"})
}
