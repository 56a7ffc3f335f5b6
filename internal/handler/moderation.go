package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"talksphere/internal/httputil"
	"talksphere/internal/model"
	"talksphere/internal/service"
	"talksphere/internal/transport/http/middleware"
)

type ModerationHandler struct {
	moderationService *service.ModerationService
}

func NewModerationHandler(moderationService *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// ReportPost handles POST /reports/post/{postId}
func (h *ModerationHandler) ReportPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.moderationService.ReportPost(r.Context(), chi.URLParam(r, "postId"), userID, req)
	if err != nil {
		writeModerationError(w, err, "Failed to submit report")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, report)
}

// ReportComment handles POST /reports/comment/{commentId}
func (h *ModerationHandler) ReportComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.moderationService.ReportComment(r.Context(), chi.URLParam(r, "commentId"), userID, req)
	if err != nil {
		writeModerationError(w, err, "Failed to submit report")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, report)
}

// List handles GET /reports (admin)
func (h *ModerationHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.moderationService.ListReports(r.Context())
	if err != nil {
		writeModerationError(w, err, "Failed to get reports")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

// Resolve handles PATCH /reports/{reportId}/resolve (admin)
func (h *ModerationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	report, err := h.moderationService.ResolveReport(r.Context(), chi.URLParam(r, "reportId"), adminID)
	if err != nil {
		writeModerationError(w, err, "Failed to resolve report")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

type banRequest struct {
	Banned *bool `json:"banned"`
}

// Ban handles PATCH /reports/user/{userId}/ban (admin)
// An empty body bans; {"banned": false} lifts a ban.
func (h *ModerationHandler) Ban(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())
	userID := chi.URLParam(r, "userId")

	var req banRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	banned := req.Banned == nil || *req.Banned

	if err := h.moderationService.SetUserBanned(r.Context(), userID, adminID, banned); err != nil {
		writeModerationError(w, err, "Failed to update user")
		return
	}

	message := "User banned"
	if !banned {
		message = "User unbanned"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": message, "userId": userID, "isBanned": banned})
}

// DeletePost handles DELETE /reports/post/{postId} (admin)
// Removes the post and all of its comments.
func (h *ModerationHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	removed, err := h.moderationService.DeletePost(r.Context(), chi.URLParam(r, "postId"), adminID)
	if err != nil {
		writeModerationError(w, err, "Failed to delete post")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "Post deleted", "removedComments": removed})
}

// DeleteComment handles DELETE /reports/comment/{commentId} (admin)
func (h *ModerationHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())
	commentID := chi.URLParam(r, "commentId")

	removed, err := h.moderationService.DeleteComment(r.Context(), commentID, adminID)
	if err != nil {
		writeCommentError(w, err, "Failed to delete comment", "ModerationDelete", adminID, commentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.DeleteCommentResponse{Message: "Comment deleted", Removed: removed})
}

func writeModerationError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrInvalidID):
		httputil.WriteBadRequest(w, "Invalid ID")
	case errors.Is(err, model.ErrReasonRequired):
		httputil.WriteBadRequest(w, "Reason is required")
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteNotFound(w, "Comment not found")
	case errors.Is(err, model.ErrReportNotFound):
		httputil.WriteNotFound(w, "Report not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	default:
		log.Printf("[ERROR] Moderation handler: err=%v", err)
		httputil.WriteInternalError(w, fallback)
	}
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty.
func decodeOptionalJSON(body io.Reader, dst interface{}) error {
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
