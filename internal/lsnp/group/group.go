// Package group keeps the local record of every known group: who created
// it, who is in it, and whether a given sender may message it. Fan-out of
// group frames is a node concern; this store answers the membership
// questions.
package group

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

// Group is one group record. Creator is always a member.
type Group struct {
	ID      string
	Name    string
	Creator string
	members mapset.Set[string]
}

// Members returns the membership sorted for stable listing.
func (g *Group) Members() []string {
	out := g.members.ToSlice()
	sort.Strings(out)
	return out
}

// Has reports whether userID is a member.
func (g *Group) Has(userID string) bool { return g.members.Contains(userID) }

// Store owns every known group, keyed by group ID.
type Store struct {
	mu     sync.Mutex
	groups map[string]*Group
	log    *slog.Logger
}

// NewStore returns an empty group table.
func NewStore() *Store {
	return &Store{
		groups: make(map[string]*Group),
		log:    logger.Logger().With("component", "group"),
	}
}

// Create seeds a group record from a GROUP_CREATE frame. The sender becomes
// the creator and is folded into the membership. Re-creating an existing
// group ID by anyone but its creator is rejected; the creator re-creating
// replaces name and membership.
func (s *Store) Create(msg *proto.GroupCreate) (*Group, error) {
	if msg.GroupID == "" {
		return nil, errors.NewGroupError("create", fmt.Errorf("empty group id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.groups[msg.GroupID]; ok && existing.Creator != msg.From {
		return nil, errors.NewGroupError("create", fmt.Errorf("group %s already owned by %s", msg.GroupID, existing.Creator))
	}
	members := mapset.NewSet[string]()
	members.Add(msg.From)
	for _, m := range msg.Members {
		if m != "" {
			members.Add(m)
		}
	}
	g := &Group{ID: msg.GroupID, Name: msg.GroupName, Creator: msg.From, members: members}
	s.groups[msg.GroupID] = g
	s.log.Info("group created", "group_id", g.ID, "name", g.Name, "members", members.Cardinality())
	return g, nil
}

// Update applies a creator's ADD/REMOVE lists. Updates from anyone else are
// rejected. The creator cannot be removed.
func (s *Store) Update(msg *proto.GroupUpdate) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[msg.GroupID]
	if !ok {
		return nil, errors.NewGroupError("update", fmt.Errorf("unknown group %s", msg.GroupID))
	}
	if msg.From != g.Creator {
		return nil, errors.NewGroupError("update", fmt.Errorf("%s is not the creator of %s", msg.From, msg.GroupID))
	}
	for _, m := range msg.Add {
		if m != "" {
			g.members.Add(m)
		}
	}
	for _, m := range msg.Remove {
		if m != "" && m != g.Creator {
			g.members.Remove(m)
		}
	}
	return g, nil
}

// Authorize reports whether sender may post a GROUP_MESSAGE to groupID.
// Unknown groups and non-members both fail; the caller drops silently.
func (s *Store) Authorize(groupID, sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	return ok && g.members.Contains(sender)
}

// Get returns a group by ID.
func (s *Store) Get(groupID string) (*Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	return g, ok
}

// FanOut lists the members a frame from sender should be unicast to:
// everyone in the group except the sender.
func (s *Store) FanOut(groupID, sender string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, errors.NewGroupError("fanout", fmt.Errorf("unknown group %s", groupID))
	}
	var out []string
	for _, m := range g.Members() {
		if m != sender {
			out = append(out, m)
		}
	}
	return out, nil
}

// List returns every known group sorted by ID.
func (s *Store) List() []*Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
