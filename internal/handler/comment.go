package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"talksphere/internal/httputil"
	"talksphere/internal/model"
	"talksphere/internal/service"
	"talksphere/internal/transport/http/middleware"
)

// maxJSONBody bounds request bodies; comments cap out well below this.
const maxJSONBody = 1 << 20

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// List handles GET /comments/{postId}
// Returns the post's comments as a reply forest, oldest first.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	forest, err := h.commentService.ListForPost(r.Context(), postID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidID):
			httputil.WriteBadRequest(w, "Invalid post ID")
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		default:
			log.Printf("[ERROR] List comments handler: post=%s err=%v", postID, err)
			httputil.WriteInternalError(w, "Failed to get comments")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, forest)
}

// Create handles POST /comments/{postId}
// Creates a top-level comment on a post for the authenticated user.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID := chi.URLParam(r, "postId")

	var req model.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, req)
	if err != nil && !storedWithStaleCounter(comment, err) {
		writeCommentError(w, err, "Failed to create comment", "Create", userID, postID)
		return
	}
	if err != nil {
		log.Printf("[WARN] Create comment handler: user=%s target=%s err=%v", userID, postID, err)
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Reply handles POST /comments/reply/{commentId}
// Replies to an existing comment. The reply joins the parent's post.
func (h *CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	parentID := chi.URLParam(r, "commentId")

	var req model.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Reply(r.Context(), parentID, userID, req)
	if err != nil && !storedWithStaleCounter(comment, err) {
		writeCommentError(w, err, "Failed to create reply", "Reply", userID, parentID)
		return
	}
	if err != nil {
		log.Printf("[WARN] Reply comment handler: user=%s target=%s err=%v", userID, parentID, err)
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Update handles PUT /comments/{commentId}
// Updates a comment's content (only owner can update).
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID := chi.URLParam(r, "commentId")

	var req model.UpdateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Edit(r.Context(), commentID, userID, req)
	if err != nil {
		writeCommentError(w, err, "Failed to update comment", "Update", userID, commentID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /comments/{commentId}
// Deletes a comment and all of its replies (only owner can delete).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID := chi.URLParam(r, "commentId")

	removed, err := h.commentService.Delete(r.Context(), commentID, userID)
	if err != nil {
		writeCommentError(w, err, "Failed to delete comment", "Delete", userID, commentID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.DeleteCommentResponse{
		Message: "Comment deleted",
		Removed: removed,
	})
}

// Upvote handles POST /comments/upvote/{commentId}
func (h *CommentHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.VoteLike)
}

// Downvote handles POST /comments/downvote/{commentId}
func (h *CommentHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.VoteDislike)
}

func (h *CommentHandler) vote(w http.ResponseWriter, r *http.Request, dir model.VoteDirection) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID := chi.URLParam(r, "commentId")

	comment, err := h.commentService.Vote(r.Context(), commentID, userID, dir)
	if err != nil {
		writeCommentError(w, err, "Failed to record vote", "Vote", userID, commentID)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// storedWithStaleCounter reports whether a create went through and only the
// post's counter update failed. The counter is repaired by the reconciler.
func storedWithStaleCounter(comment *model.Comment, err error) bool {
	return comment != nil && errors.Is(err, model.ErrCounterStale)
}

// writeCommentError maps comment service errors onto the error envelope.
func writeCommentError(w http.ResponseWriter, err error, fallback, op, userID, target string) {
	switch {
	case errors.Is(err, model.ErrInvalidID):
		httputil.WriteBadRequest(w, "Invalid ID")
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteNotFound(w, "Comment not found")
	case errors.Is(err, model.ErrContentRequired):
		httputil.WriteBadRequest(w, "Comment content is required")
	case errors.Is(err, model.ErrContentTooLong):
		httputil.WriteBadRequest(w, "Comment content too long")
	case errors.Is(err, model.ErrInvalidVote):
		httputil.WriteBadRequest(w, "Invalid vote")
	case errors.Is(err, model.ErrNotCommentOwner):
		httputil.WriteForbidden(w, "You can only modify your own comments")
	case errors.Is(err, model.ErrUserBanned):
		httputil.WriteForbidden(w, "Your account is banned")
	case errors.Is(err, model.ErrCounterStale):
		log.Printf("[WARN] %s comment handler: user=%s target=%s err=%v", op, userID, target, err)
		httputil.WriteCounterStale(w, "The change was only partly applied; the comment count is being repaired")
	default:
		log.Printf("[ERROR] %s comment handler: user=%s target=%s err=%v", op, userID, target, err)
		httputil.WriteInternalError(w, fallback)
	}
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}
