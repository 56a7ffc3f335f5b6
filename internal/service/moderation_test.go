package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talksphere/internal/model"
	"talksphere/internal/queue"
	"talksphere/internal/repository/memory"
)

func newModerationTestEnv(t *testing.T) (*commentTestEnv, *ModerationService, *memory.ReportStore) {
	t.Helper()
	env := newCommentTestEnv(t)
	reports := memory.NewReportStore()
	svc := NewModerationService(reports, env.posts, env.comments, env.users, env.svc, env.publisher)
	return env, svc, reports
}

func TestModerationService_DeletePost(t *testing.T) {
	env, svc, _ := newModerationTestEnv(t)
	ctx := context.Background()
	postID := env.seedPost(t)
	keepPost := env.seedPost(t)

	a, _ := env.svc.Create(ctx, postID, "alice", say("a"))
	_, _ = env.svc.Reply(ctx, a.ID, "bob", say("b"))
	_, _ = env.svc.Create(ctx, postID, "carol", say("c"))
	kept, _ := env.svc.Create(ctx, keepPost, "carol", say("elsewhere"))

	removed, err := svc.DeletePost(ctx, postID, "admin")

	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = env.posts.GetByID(ctx, postID)
	assert.ErrorIs(t, err, model.ErrPostNotFound)
	n, err := env.comments.CountByPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = env.comments.GetByID(ctx, kept.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, env.commentCount(t, keepPost))

	assert.Contains(t, env.publisher.types(), queue.EventPostDeleted)

	_, err = svc.DeletePost(ctx, postID, "admin")
	assert.ErrorIs(t, err, model.ErrPostNotFound)
}

func TestModerationService_DeletePost_RemovesPostBeforeComments(t *testing.T) {
	env, _, reports := newModerationTestEnv(t)
	ctx := context.Background()
	postID := env.seedPost(t)
	_, _ = env.svc.Create(ctx, postID, "alice", say("a"))

	var postPresent bool
	comments := &mockCommentRepository{
		CommentRepository: env.comments,
		deleteByPostFn: func(ctx context.Context, id string) (int, error) {
			postPresent, _ = env.posts.Exists(ctx, id)
			return env.comments.DeleteByPost(ctx, id)
		},
	}
	svc := NewModerationService(reports, env.posts, comments, env.users, env.svc, env.publisher)

	removed, err := svc.DeletePost(ctx, postID, "admin")

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, postPresent, "comments must be removed after the post is gone")
}

func TestModerationService_DeleteComment(t *testing.T) {
	env, svc, _ := newModerationTestEnv(t)
	ctx := context.Background()
	postID := env.seedPost(t)
	c, _ := env.svc.Create(ctx, postID, "alice", say("a"))

	removed, err := svc.DeleteComment(ctx, c.ID, "admin")

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, env.commentCount(t, postID))
}

func TestModerationService_Reports(t *testing.T) {
	env, svc, _ := newModerationTestEnv(t)
	ctx := context.Background()
	postID := env.seedPost(t)
	c, _ := env.svc.Create(ctx, postID, "alice", say("rude"))

	_, err := svc.ReportPost(ctx, postID, "bob", model.CreateReportRequest{Reason: "  "})
	assert.ErrorIs(t, err, model.ErrReasonRequired)

	_, err = svc.ReportPost(ctx, model.NewID(), "bob", model.CreateReportRequest{Reason: "spam"})
	assert.ErrorIs(t, err, model.ErrPostNotFound)

	_, err = svc.ReportComment(ctx, model.NewID(), "bob", model.CreateReportRequest{Reason: "spam"})
	assert.ErrorIs(t, err, model.ErrCommentNotFound)

	pr, err := svc.ReportPost(ctx, postID, "bob", model.CreateReportRequest{Reason: " spam ", Description: "ads"})
	require.NoError(t, err)
	assert.Equal(t, "spam", pr.Reason)
	assert.Equal(t, model.ReportPending, pr.Status)
	require.NotNil(t, pr.PostID)
	assert.Nil(t, pr.CommentID)

	cr, err := svc.ReportComment(ctx, c.ID, "bob", model.CreateReportRequest{Reason: "abuse"})
	require.NoError(t, err)
	require.NotNil(t, cr.CommentID)
	assert.Equal(t, c.ID, *cr.CommentID)

	list, err := svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	resolved, err := svc.ResolveReport(ctx, pr.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, model.ReportResolved, resolved.Status)

	_, err = svc.ResolveReport(ctx, model.NewID(), "admin")
	assert.ErrorIs(t, err, model.ErrReportNotFound)
}

func TestModerationService_SetUserBanned(t *testing.T) {
	env, svc, _ := newModerationTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Upsert(ctx, &model.User{ID: "mallory", Name: "Mallory"}))

	require.NoError(t, svc.SetUserBanned(ctx, "mallory", "admin", true))
	u, err := env.users.GetByID(ctx, "mallory")
	require.NoError(t, err)
	assert.True(t, u.IsBanned)

	require.NoError(t, svc.SetUserBanned(ctx, "mallory", "admin", false))
	u, _ = env.users.GetByID(ctx, "mallory")
	assert.False(t, u.IsBanned)

	assert.ErrorIs(t, svc.SetUserBanned(ctx, "nobody", "admin", true), model.ErrUserNotFound)
}
