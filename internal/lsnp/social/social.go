// Package social tracks the node's social graph and feed state: who this
// node follows, who follows it, which posts it has liked, and which
// reliable-unicast MESSAGE_IDs it has already processed (replay
// suppression for retransmitted DMs and moves).
package social

import (
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// seenCapacity bounds the replay-suppression window. Retransmits arrive
// within seconds, so a small window is plenty; the LRU just stops
// unbounded growth on long-lived nodes.
const seenCapacity = 4096

// Service is the process-wide social state, safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	following mapset.Set[string] // user_ids this node follows
	followers mapset.Set[string] // user_ids following this node
	liked     mapset.Set[string] // author|post_timestamp keys

	seen *lru.Cache[string, struct{}]
}

// NewService returns empty social state.
func NewService() (*Service, error) {
	seen, err := lru.New[string, struct{}](seenCapacity)
	if err != nil {
		return nil, err
	}
	return &Service{
		following: mapset.NewSet[string](),
		followers: mapset.NewSet[string](),
		liked:     mapset.NewSet[string](),
		seen:      seen,
	}, nil
}

// Follow records that this node follows userID.
func (s *Service) Follow(userID string) { s.following.Add(userID) }

// Unfollow removes userID from the following set.
func (s *Service) Unfollow(userID string) { s.following.Remove(userID) }

// IsFollowing reports whether this node follows userID. Inbound POSTs from
// unfollowed authors are accepted but not surfaced to the feed.
func (s *Service) IsFollowing(userID string) bool { return s.following.Contains(userID) }

// Following lists followed user_ids sorted.
func (s *Service) Following() []string {
	out := s.following.ToSlice()
	sort.Strings(out)
	return out
}

// AddFollower records an inbound FOLLOW from userID.
func (s *Service) AddFollower(userID string) { s.followers.Add(userID) }

// RemoveFollower records an inbound UNFOLLOW from userID.
func (s *Service) RemoveFollower(userID string) { s.followers.Remove(userID) }

// Followers lists follower user_ids sorted.
func (s *Service) Followers() []string {
	out := s.followers.ToSlice()
	sort.Strings(out)
	return out
}

func likeKey(author string, postTimestamp int64) string {
	return fmt.Sprintf("%s|%d", author, postTimestamp)
}

// Like marks the post identified by (author, postTimestamp) as liked.
// It reports false if the post was already liked.
func (s *Service) Like(author string, postTimestamp int64) bool {
	return s.liked.Add(likeKey(author, postTimestamp))
}

// Unlike clears a like. It reports false if the post was not liked.
func (s *Service) Unlike(author string, postTimestamp int64) bool {
	key := likeKey(author, postTimestamp)
	if !s.liked.Contains(key) {
		return false
	}
	s.liked.Remove(key)
	return true
}

// HasLiked reports whether the post is currently liked.
func (s *Service) HasLiked(author string, postTimestamp int64) bool {
	return s.liked.Contains(likeKey(author, postTimestamp))
}

// SeenMessage records messageID and reports whether it was already seen.
// Handlers call this before applying DM or move state; a true return means
// the frame is a retransmit and should be re-ACKed without reapplying.
func (s *Service) SeenMessage(messageID string) bool {
	if messageID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen.Get(messageID); ok {
		return true
	}
	s.seen.Add(messageID, struct{}{})
	return false
}
