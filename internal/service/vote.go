package service

import "talksphere/internal/model"

// ApplyVote toggles userID's vote on c in the given direction.
//
// Voting the same way twice withdraws the vote. Voting the other way moves
// the user from one set to the other. The counters are recomputed from the
// sets afterwards, so a user never appears in both and the counts always
// match the set sizes.
func ApplyVote(c *model.Comment, userID string, dir model.VoteDirection) error {
	if !dir.Valid() {
		return model.ErrInvalidVote
	}

	target, opposite := &c.LikedBy, &c.DislikedBy
	if dir == model.VoteDislike {
		target, opposite = &c.DislikedBy, &c.LikedBy
	}

	*opposite = removeUser(*opposite, userID)
	if containsUser(*target, userID) {
		*target = removeUser(*target, userID)
	} else {
		*target = append(*target, userID)
	}

	c.Likes = len(c.LikedBy)
	c.Dislikes = len(c.DislikedBy)
	return nil
}

func containsUser(ids []string, userID string) bool {
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}

func removeUser(ids []string, userID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
