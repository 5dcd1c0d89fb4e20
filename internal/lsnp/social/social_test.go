package social

import "testing"

const (
	alice = "alice@192.168.1.2:50999"
	bob   = "bob@192.168.1.3:50999"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestFollowUnfollow(t *testing.T) {
	s := newService(t)
	if s.IsFollowing(bob) {
		t.Fatalf("fresh service should follow nobody")
	}
	s.Follow(bob)
	s.Follow(alice)
	if !s.IsFollowing(bob) {
		t.Fatalf("follow not recorded")
	}
	if got := s.Following(); len(got) != 2 || got[0] != alice {
		t.Fatalf("want sorted [alice bob], got %v", got)
	}
	s.Unfollow(bob)
	if s.IsFollowing(bob) {
		t.Fatalf("unfollow not recorded")
	}
}

func TestFollowers(t *testing.T) {
	s := newService(t)
	s.AddFollower(bob)
	if got := s.Followers(); len(got) != 1 || got[0] != bob {
		t.Fatalf("want [bob], got %v", got)
	}
	s.RemoveFollower(bob)
	if len(s.Followers()) != 0 {
		t.Fatalf("follower not removed")
	}
}

func TestLikeUnlike(t *testing.T) {
	s := newService(t)
	if !s.Like(bob, 1700000000) {
		t.Fatalf("first like should succeed")
	}
	if s.Like(bob, 1700000000) {
		t.Fatalf("double like should report false")
	}
	if !s.HasLiked(bob, 1700000000) {
		t.Fatalf("like not recorded")
	}
	// Same timestamp, different author is a distinct post.
	if s.HasLiked(alice, 1700000000) {
		t.Fatalf("like leaked across authors")
	}
	if !s.Unlike(bob, 1700000000) {
		t.Fatalf("unlike should succeed")
	}
	if s.Unlike(bob, 1700000000) {
		t.Fatalf("unlike of unliked post should report false")
	}
}

func TestSeenMessage(t *testing.T) {
	s := newService(t)
	if s.SeenMessage("deadbeef") {
		t.Fatalf("first sighting reported as replay")
	}
	if !s.SeenMessage("deadbeef") {
		t.Fatalf("second sighting not reported as replay")
	}
	// Empty IDs are never tracked.
	if s.SeenMessage("") || s.SeenMessage("") {
		t.Fatalf("empty message id should never be a replay")
	}
}
