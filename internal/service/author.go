package service

import (
	"context"
	"log"
	"time"

	"github.com/graph-gophers/dataloader"

	"talksphere/internal/cache"
	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// AuthorResolver attaches display identities to comments and announcements.
// Lookups go through the author cache first; the misses of one call are
// fetched from the user store in a single batch. Failure never surfaces to
// the caller: unresolved authors get a placeholder.
type AuthorResolver struct {
	users         repository.UserRepository
	cache         cache.AuthorCache
	defaultAvatar string
}

func NewAuthorResolver(users repository.UserRepository, authorCache cache.AuthorCache, defaultAvatar string) *AuthorResolver {
	return &AuthorResolver{
		users:         users,
		cache:         authorCache,
		defaultAvatar: defaultAvatar,
	}
}

// Resolve returns a summary for every id in ids.
func (r *AuthorResolver) Resolve(ctx context.Context, ids []string) map[string]model.UserSummary {
	result := make(map[string]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result
	}

	missing := uniqueIDs(ids)
	if r.cache != nil {
		var found map[string]model.UserSummary
		found, missing = r.cache.GetMany(missing)
		for id, s := range found {
			result[id] = s
		}
	}

	if len(missing) > 0 {
		r.load(ctx, missing, result)
	}

	for _, id := range ids {
		if _, ok := result[id]; !ok {
			result[id] = model.PlaceholderAuthor(id, r.defaultAvatar)
		}
	}
	return result
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Invalidate drops a user's cached summary after a profile change.
func (r *AuthorResolver) Invalidate(userID string) {
	if r.cache != nil {
		r.cache.Invalidate(userID)
	}
}

// load fetches ids through a call-scoped batched loader and writes resolved
// summaries into out.
func (r *AuthorResolver) load(ctx context.Context, ids []string, out map[string]model.UserSummary) {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		userIDs := keys.Keys()

		summaries, err := r.users.GetSummaries(ctx, userIDs)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		for i, id := range userIDs {
			if s, ok := summaries[id]; ok {
				results[i] = &dataloader.Result{Data: s}
			} else {
				results[i] = &dataloader.Result{Error: model.ErrUserNotFound}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn,
		dataloader.WithWait(time.Millisecond),
		dataloader.WithCache(&dataloader.NoCache{}),
	)

	data, errs := loader.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	var failed int
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			failed++
			continue
		}
		s, ok := data[i].(model.UserSummary)
		if !ok {
			failed++
			continue
		}
		if s.ProfilePic == "" {
			s.ProfilePic = r.defaultAvatar
		}
		out[id] = s
		if r.cache != nil {
			r.cache.Set(s)
		}
	}

	if failed > 0 {
		log.Printf("[AuthorResolver] %d of %d authors unresolved, using placeholder", failed, len(ids))
	}
}
