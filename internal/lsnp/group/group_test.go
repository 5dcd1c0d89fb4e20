package group

import (
	"testing"

	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

const (
	creator = "alice@192.168.1.2:50999"
	member  = "bob@192.168.1.3:50999"
	other   = "carol@192.168.1.4:50999"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if _, err := s.Create(&proto.GroupCreate{
		From:      creator,
		GroupID:   "GROUP_a1b2c3d4",
		GroupName: "study group",
		Members:   []string{creator, member},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func TestCreateFoldsInCreator(t *testing.T) {
	s := NewStore()
	g, err := s.Create(&proto.GroupCreate{
		From:    creator,
		GroupID: "g001",
		Members: []string{member}, // creator omitted from MEMBERS
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !g.Has(creator) || !g.Has(member) {
		t.Fatalf("membership wrong: %v", g.Members())
	}
	if g.Creator != creator {
		t.Fatalf("creator wrong: %s", g.Creator)
	}
}

func TestCreateCollision(t *testing.T) {
	s := seed(t)
	// Someone else cannot take over an existing group ID.
	if _, err := s.Create(&proto.GroupCreate{From: other, GroupID: "GROUP_a1b2c3d4"}); err == nil {
		t.Fatalf("expected takeover rejection")
	}
	// The creator re-creating replaces the membership.
	g, err := s.Create(&proto.GroupCreate{From: creator, GroupID: "GROUP_a1b2c3d4", Members: []string{other}})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if g.Has(member) || !g.Has(other) {
		t.Fatalf("recreate did not replace membership: %v", g.Members())
	}
}

func TestUpdateCreatorOnly(t *testing.T) {
	s := seed(t)
	if _, err := s.Update(&proto.GroupUpdate{From: member, GroupID: "GROUP_a1b2c3d4", Add: []string{other}}); err == nil {
		t.Fatalf("non-creator update should be rejected")
	}
	g, err := s.Update(&proto.GroupUpdate{From: creator, GroupID: "GROUP_a1b2c3d4", Add: []string{other}, Remove: []string{member}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if g.Has(member) || !g.Has(other) {
		t.Fatalf("update not applied: %v", g.Members())
	}
}

func TestUpdateCannotRemoveCreator(t *testing.T) {
	s := seed(t)
	g, err := s.Update(&proto.GroupUpdate{From: creator, GroupID: "GROUP_a1b2c3d4", Remove: []string{creator}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !g.Has(creator) {
		t.Fatalf("creator was removed")
	}
}

func TestUpdateUnknownGroup(t *testing.T) {
	s := NewStore()
	if _, err := s.Update(&proto.GroupUpdate{From: creator, GroupID: "nope"}); err == nil {
		t.Fatalf("expected unknown-group error")
	}
}

func TestAuthorize(t *testing.T) {
	s := seed(t)
	if !s.Authorize("GROUP_a1b2c3d4", member) {
		t.Fatalf("member should be authorized")
	}
	if s.Authorize("GROUP_a1b2c3d4", other) {
		t.Fatalf("non-member should not be authorized")
	}
	if s.Authorize("nope", member) {
		t.Fatalf("unknown group should not authorize anyone")
	}
}

func TestFanOutExcludesSender(t *testing.T) {
	s := seed(t)
	if _, err := s.Update(&proto.GroupUpdate{From: creator, GroupID: "GROUP_a1b2c3d4", Add: []string{other}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.FanOut("GROUP_a1b2c3d4", member)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 targets, got %v", got)
	}
	for _, u := range got {
		if u == member {
			t.Fatalf("sender included in fan-out")
		}
	}
}
