package peer

// Peer registry
// -------------
// Thread-safe registry of everything learned about peers on the subnet,
// keyed by canonical user_id. Every inbound frame upserts its sender; PROFILE
// frames additionally refresh display name, status and avatar. Entries are
// never aged out automatically: liveness is advisory via LastSeen.

import (
	"sort"
	"sync"
	"time"
)

// Peer is one registry entry. The stored Port always equals the port parsed
// from the user_id, not the UDP source port.
type Peer struct {
	UserID          string
	IP              string
	Port            int
	DisplayName     string
	Status          string
	LastSeen        time.Time
	LastProfileSent time.Time
	AvatarType      string
	AvatarData      string // base64
}

// Registry tracks known peers.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{peers: make(map[string]*Peer)} }

// Upsert records an observation of userID from sourceIP. portHint is the UDP
// source port, used only when the user_id itself carries no port. The
// canonical user_id is returned; ok is false when userID cannot be parsed.
func (r *Registry) Upsert(userID, sourceIP string, portHint int, displayName string) (string, bool) {
	id, err := Parse(userID, portHint)
	if err != nil {
		return "", false
	}
	canonical := id.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[canonical]
	if !ok {
		p = &Peer{UserID: canonical}
		r.peers[canonical] = p
	}
	p.IP = sourceIP
	p.Port = id.Port
	if displayName != "" {
		p.DisplayName = displayName
	} else if p.DisplayName == "" {
		p.DisplayName = id.Username
	}
	p.LastSeen = time.Now()
	return canonical, true
}

// SetProfile applies PROFILE-only fields to an existing (or new) entry.
func (r *Registry) SetProfile(userID, sourceIP string, portHint int, displayName, status, avatarType, avatarData string) {
	canonical, ok := r.Upsert(userID, sourceIP, portHint, displayName)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.peers[canonical]
	if status != "" {
		p.Status = status
	}
	if avatarData != "" {
		p.AvatarType = avatarType
		p.AvatarData = avatarData
	}
}

// Get returns a snapshot of the peer for userID (canonicalised first) and
// whether it exists.
func (r *Registry) Get(userID string) (Peer, bool) {
	canonical := Canonical(userID, 0)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.peers[canonical]; ok {
		return *p, true
	}
	return Peer{}, false
}

// Resolve finds the destination address for userID: the registry entry wins
// (source IP + port from canonical user_id); otherwise the user_id's own
// embedded address is used when parseable.
func (r *Registry) Resolve(userID string) (ip string, port int, ok bool) {
	if p, found := r.Get(userID); found {
		return p.IP, p.Port, true
	}
	id, err := Parse(userID, 0)
	if err != nil {
		return "", 0, false
	}
	return id.IP, id.Port, true
}

// List returns snapshots of all peers sorted by user_id, optionally
// excluding one user_id (the local node).
func (r *Registry) List(excludeUserID string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if excludeUserID != "" && p.UserID == excludeUserID {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// MarkProfileSent records when we last answered this peer with a PROFILE,
// preserved across upserts.
func (r *Registry) MarkProfileSent(userID string, at time.Time) {
	canonical := Canonical(userID, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[canonical]; ok {
		p.LastProfileSent = at
	}
}

// Remove deletes a peer (explicit admin action only).
func (r *Registry) Remove(userID string) bool {
	canonical := Canonical(userID, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[canonical]; ok {
		delete(r.peers, canonical)
		return true
	}
	return false
}

// Len returns the number of known peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
