package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talksphere/internal/config"
	"talksphere/internal/httputil"
	"talksphere/internal/model"
	"talksphere/internal/repository"
	"talksphere/internal/repository/memory"
)

type testApp struct {
	handler stdhttp.Handler
	svc     *Services
	repos   repository.Set
}

func newTestApp(t *testing.T, wrap func(repos *repository.Set)) *testApp {
	t.Helper()

	cfg := &config.Config{
		DefaultAvatarURL:   "https://cdn.example/default.png",
		CORSAllowedOrigins: []string{"*"},
	}
	repos := memory.NewSet()
	if wrap != nil {
		wrap(&repos)
	}
	svc := NewServices(cfg, repos, nil, nil, nil)
	require.NoError(t, svc.Users.SeedAdmins(context.Background(), []string{"root"}))

	return &testApp{handler: NewHandler(cfg, svc), svc: svc, repos: repos}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[httputil.ErrorResponse](t, rec).Error.Code
}

func (a *testApp) createPost(t *testing.T, token string) model.Post {
	t.Helper()
	rec := a.do(t, stdhttp.MethodPost, "/posts", token, model.CreatePostRequest{Title: "Hello", Content: "First post"})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.Post](t, rec)
}

func (a *testApp) comment(t *testing.T, path, token, text string) model.Comment {
	t.Helper()
	rec := a.do(t, stdhttp.MethodPost, path, token, model.CreateCommentRequest{Content: text})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.Comment](t, rec)
}

func (a *testApp) commentCount(t *testing.T, postID string) int {
	t.Helper()
	rec := a.do(t, stdhttp.MethodGet, "/posts/"+postID, "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	return decodeBody[model.Post](t, rec).CommentCount
}

// =============================================================================
// Comment flow
// =============================================================================

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(t, stdhttp.MethodGet, "/health", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestRouter_CommentThreadLifecycle(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodPut, "/users/me", "alice", model.UpsertUserRequest{Name: "Alice"})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	post := app.createPost(t, "alice")
	root := app.comment(t, "/comments/"+post.ID, "alice", "Nice post")
	reply := app.comment(t, "/comments/reply/"+root.ID, "bob", "Agreed")
	assert.Equal(t, post.ID, reply.PostID)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)
	assert.Equal(t, 2, app.commentCount(t, post.ID))

	rec = app.do(t, stdhttp.MethodGet, "/comments/"+post.ID, "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	forest := decodeBody[[]model.CommentNode](t, rec)
	require.Len(t, forest, 1)
	assert.Equal(t, "Alice", forest[0].Author.Name)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, model.UnknownAuthorName, forest[0].Replies[0].Author.Name)
	assert.Equal(t, "https://cdn.example/default.png", forest[0].Replies[0].Author.ProfilePic)

	rec = app.do(t, stdhttp.MethodPut, "/comments/"+root.ID, "bob", model.UpdateCommentRequest{Content: "hijack"})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = app.do(t, stdhttp.MethodPut, "/comments/"+root.ID, "alice", model.UpdateCommentRequest{Content: "Nice post!"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "Nice post!", decodeBody[model.Comment](t, rec).Content)

	rec = app.do(t, stdhttp.MethodDelete, "/comments/"+root.ID, "bob", nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = app.do(t, stdhttp.MethodDelete, "/comments/"+root.ID, "alice", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[model.DeleteCommentResponse](t, rec).Removed)
	assert.Equal(t, 0, app.commentCount(t, post.ID))

	rec = app.do(t, stdhttp.MethodGet, "/comments/"+post.ID, "", nil)
	assert.Empty(t, decodeBody[[]model.CommentNode](t, rec))
}

func TestRouter_CommentErrors(t *testing.T) {
	app := newTestApp(t, nil)
	post := app.createPost(t, "alice")

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     interface{}
		wantCode int
	}{
		{"no token", stdhttp.MethodPost, "/comments/" + post.ID, "", model.CreateCommentRequest{Content: "x"}, stdhttp.StatusUnauthorized},
		{"malformed post id", stdhttp.MethodPost, "/comments/not-a-uuid", "alice", model.CreateCommentRequest{Content: "x"}, stdhttp.StatusBadRequest},
		{"unknown post", stdhttp.MethodPost, "/comments/" + model.NewID(), "alice", model.CreateCommentRequest{Content: "x"}, stdhttp.StatusNotFound},
		{"blank content", stdhttp.MethodPost, "/comments/" + post.ID, "alice", model.CreateCommentRequest{Content: "   "}, stdhttp.StatusBadRequest},
		{"unknown parent", stdhttp.MethodPost, "/comments/reply/" + model.NewID(), "alice", model.CreateCommentRequest{Content: "x"}, stdhttp.StatusNotFound},
		{"list unknown post", stdhttp.MethodGet, "/comments/" + model.NewID(), "", nil, stdhttp.StatusNotFound},
		{"delete unknown comment", stdhttp.MethodDelete, "/comments/" + model.NewID(), "alice", nil, stdhttp.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 0, app.commentCount(t, post.ID))
}

func TestRouter_VoteToggles(t *testing.T) {
	app := newTestApp(t, nil)
	post := app.createPost(t, "alice")
	c := app.comment(t, "/comments/"+post.ID, "alice", "vote on me")

	rec := app.do(t, stdhttp.MethodPost, "/comments/upvote/"+c.ID, "bob", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	voted := decodeBody[model.Comment](t, rec)
	assert.Equal(t, 1, voted.Likes)
	assert.Equal(t, []string{"bob"}, voted.LikedBy)

	rec = app.do(t, stdhttp.MethodPost, "/comments/downvote/"+c.ID, "bob", nil)
	voted = decodeBody[model.Comment](t, rec)
	assert.Equal(t, 0, voted.Likes)
	assert.Equal(t, 1, voted.Dislikes)

	rec = app.do(t, stdhttp.MethodPost, "/comments/downvote/"+c.ID, "bob", nil)
	voted = decodeBody[model.Comment](t, rec)
	assert.Equal(t, 0, voted.Dislikes)
	assert.Empty(t, voted.DislikedBy)
}

// =============================================================================
// Counter stale
// =============================================================================

type flakyComments struct {
	repository.CommentRepository
	deletes int
	failAt  int
}

func (f *flakyComments) Delete(ctx context.Context, id string) (bool, error) {
	f.deletes++
	if f.deletes == f.failAt {
		return false, errors.New("connection reset")
	}
	return f.CommentRepository.Delete(ctx, id)
}

func TestRouter_PartialCascadeReportsCounterStale(t *testing.T) {
	flaky := &flakyComments{failAt: 2}
	app := newTestApp(t, func(repos *repository.Set) {
		flaky.CommentRepository = repos.Comments
		repos.Comments = flaky
	})

	post := app.createPost(t, "alice")
	root := app.comment(t, "/comments/"+post.ID, "alice", "root")
	child := app.comment(t, "/comments/reply/"+root.ID, "alice", "child")
	app.comment(t, "/comments/reply/"+child.ID, "alice", "grandchild")
	require.Equal(t, 3, app.commentCount(t, post.ID))

	rec := app.do(t, stdhttp.MethodDelete, "/comments/"+root.ID, "alice", nil)
	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, httputil.ErrCodeCounterStale, errorCode(t, rec))

	// One comment went before the failure and the counter followed it.
	assert.Equal(t, 2, app.commentCount(t, post.ID))

	n, err := app.svc.Reconcile.ReconcilePost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// =============================================================================
// Moderation
// =============================================================================

func TestRouter_AdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodGet, "/reports", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = app.do(t, stdhttp.MethodGet, "/reports", "bob", nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
	assert.Equal(t, httputil.ErrCodeForbidden, errorCode(t, rec))

	rec = app.do(t, stdhttp.MethodGet, "/reports", "root", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = app.do(t, stdhttp.MethodPost, "/announcements", "bob", model.CreateAnnouncementRequest{Title: "t", Content: "c"})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestRouter_ReportAndModerate(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(t, stdhttp.MethodPut, "/users/me", "bob", model.UpsertUserRequest{Name: "Bob"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	post := app.createPost(t, "alice")
	root := app.comment(t, "/comments/"+post.ID, "bob", "spam")
	app.comment(t, "/comments/reply/"+root.ID, "carol", "more spam")

	rec = app.do(t, stdhttp.MethodPost, "/reports/comment/"+root.ID, "alice", model.CreateReportRequest{Reason: "spam"})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	report := decodeBody[model.Report](t, rec)

	rec = app.do(t, stdhttp.MethodPatch, "/reports/"+report.ID+"/resolve", "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, model.ReportResolved, decodeBody[model.Report](t, rec).Status)

	rec = app.do(t, stdhttp.MethodDelete, "/reports/comment/"+root.ID, "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[model.DeleteCommentResponse](t, rec).Removed)
	assert.Equal(t, 0, app.commentCount(t, post.ID))

	rec = app.do(t, stdhttp.MethodPatch, "/reports/user/bob/ban", "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, stdhttp.MethodPost, "/comments/"+post.ID, "bob", model.CreateCommentRequest{Content: "back again"})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = app.do(t, stdhttp.MethodDelete, "/reports/post/"+post.ID, "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = app.do(t, stdhttp.MethodGet, "/posts/"+post.ID, "", nil)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestRouter_AdminListsUsers(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(t, stdhttp.MethodPut, "/users/me", "bob", model.UpsertUserRequest{Name: "Bob"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = app.do(t, stdhttp.MethodGet, "/users", "bob", nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = app.do(t, stdhttp.MethodGet, "/users", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = app.do(t, stdhttp.MethodPatch, "/reports/user/bob/ban", "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, stdhttp.MethodGet, "/users", "root", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	byID := make(map[string]map[string]interface{}, len(users))
	for _, u := range users {
		byID[u["id"].(string)] = u
	}
	require.Contains(t, byID, "bob")
	require.Contains(t, byID, "root")
	assert.Equal(t, true, byID["bob"]["isBanned"])
	assert.Equal(t, model.RoleUser, byID["bob"]["role"])
	assert.Equal(t, model.RoleAdmin, byID["root"]["role"])

	rec = app.do(t, stdhttp.MethodGet, "/users/bob", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestRouter_Announcements(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodPost, "/announcements", "root", model.CreateAnnouncementRequest{Title: "Maintenance", Content: "Tonight"})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[model.Announcement](t, rec)

	rec = app.do(t, stdhttp.MethodGet, "/announcements", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	list := decodeBody[[]model.Announcement](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "root", list[0].Author.ID)

	rec = app.do(t, stdhttp.MethodDelete, "/announcements/"+created.ID, "root", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

// =============================================================================
// Notifications
// =============================================================================

func TestRouter_CommentNotifications(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodPut, "/users/me", "bob", model.UpsertUserRequest{Name: "Bob"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	post := app.createPost(t, "alice")
	c := app.comment(t, "/comments/"+post.ID, "bob", "hi alice")
	reply := app.comment(t, "/comments/reply/"+c.ID, "alice", "hi bob")
	app.comment(t, "/comments/"+post.ID, "alice", "talking to myself")

	rec = app.do(t, stdhttp.MethodGet, "/notifications", "alice", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	inbox := decodeBody[model.NotificationListResponse](t, rec)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, model.NotificationTypeComment, inbox.Notifications[0].Type)
	assert.Equal(t, "Bob", inbox.Notifications[0].Actor.Name)
	assert.Equal(t, 1, inbox.UnreadCount)

	rec = app.do(t, stdhttp.MethodGet, "/notifications", "bob", nil)
	inbox = decodeBody[model.NotificationListResponse](t, rec)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, model.NotificationTypeReply, inbox.Notifications[0].Type)
	assert.Equal(t, reply.ID, inbox.Notifications[0].CommentID)
	assert.Equal(t, post.ID, inbox.Notifications[0].PostID)

	rec = app.do(t, stdhttp.MethodPatch, "/notifications/read", "bob",
		model.MarkReadRequest{NotificationIDs: []string{inbox.Notifications[0].ID}})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = app.do(t, stdhttp.MethodGet, "/notifications/unread-count", "bob", nil)
	assert.Equal(t, 0, decodeBody[map[string]int](t, rec)["unreadCount"])

	rec = app.do(t, stdhttp.MethodPost, "/notifications/read-all", "alice", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = app.do(t, stdhttp.MethodGet, "/notifications/unread-count", "alice", nil)
	assert.Equal(t, 0, decodeBody[map[string]int](t, rec)["unreadCount"])
}

func TestRouter_DeviceTokens(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodPost, "/devices/token", "alice", model.RegisterTokenRequest{Token: "ExponentPushToken[abc]"})
	assert.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = app.do(t, stdhttp.MethodPost, "/devices/token", "alice", model.RegisterTokenRequest{Token: " "})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = app.do(t, stdhttp.MethodPost, "/devices/token", "alice", model.RegisterTokenRequest{Token: "t", Platform: "pager"})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	tokens, err := app.repos.DeviceTokens.GetByUserID(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, model.PlatformExpo, tokens[0].Platform)

	rec = app.do(t, stdhttp.MethodDelete, "/devices/token", "alice", model.RegisterTokenRequest{Token: "ExponentPushToken[abc]"})
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

// =============================================================================
// Media / CORS
// =============================================================================

func TestRouter_MediaDisabled(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, stdhttp.MethodPost, "/media/posts/presign", "alice",
		model.PresignImageRequest{ContentType: "image/png", FileSize: 10})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, model.CodeMediaDisabled, errorCode(t, rec))
}

func TestRouter_CORSPreflight(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(stdhttp.MethodOptions, "/comments/abc", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), stdhttp.MethodPost)
}
