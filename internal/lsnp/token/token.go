package token

// Capability token service
// ------------------------
// LSNP tokens are advisory capabilities, not MACs: three pipe-delimited
// fields `user_id|expiry_unix|scope`. Binding to a sender is checked by
// comparing the IP embedded in the user_id prefix against the UDP source IP.
// A token is valid iff it is not revoked, unexpired, carries the required
// scope, and (for bind checks) embeds the source IP.

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

// Default TTL per scope, in seconds.
var defaultTTL = map[string]time.Duration{
	proto.ScopeBroadcast: 3600 * time.Second,
	proto.ScopeFollow:    3600 * time.Second,
	proto.ScopeChat:      7200 * time.Second,
	proto.ScopeFile:      14400 * time.Second,
	proto.ScopeGame:      10800 * time.Second,
	proto.ScopeGroup:     86400 * time.Second,
}

// DefaultTTL returns the default lifetime for a scope (1h for unknown scopes,
// matching the broadcast default).
func DefaultTTL(scope string) time.Duration {
	if ttl, ok := defaultTTL[scope]; ok {
		return ttl
	}
	return time.Hour
}

// Service issues and validates tokens and owns the persistent revoked set.
type Service struct {
	revoked *RevokedStore
	now     func() time.Time
	log     *slog.Logger
}

// NewService creates a token service backed by the given revoked-token store.
func NewService(revoked *RevokedStore) *Service {
	return &Service{
		revoked: revoked,
		now:     time.Now,
		log:     logger.Logger().With("component", "token"),
	}
}

// Issue mints `user_id|now+ttl|scope`. A zero ttl selects the scope default.
func (s *Service) Issue(userID, scope string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = DefaultTTL(scope)
	}
	expiry := s.now().Add(ttl).Unix()
	return fmt.Sprintf("%s|%d|%s", userID, expiry, scope)
}

// parsed is the decomposed token.
type parsed struct {
	userID string
	expiry int64
	scope  string
}

func split(token string) (parsed, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 3 {
		return parsed{}, errors.NewTokenError("parse", fmt.Errorf("want 3 fields, got %d", len(parts)))
	}
	expiry, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return parsed{}, errors.NewTokenError("parse", fmt.Errorf("bad expiry: %w", err))
	}
	return parsed{userID: parts[0], expiry: expiry, scope: parts[2]}, nil
}

// Validate reports whether token is well-formed, unrevoked, unexpired and
// carries exactly expectedScope.
func (s *Service) Validate(token, expectedScope string) bool {
	if s.revoked.Contains(token) {
		s.log.Debug("token rejected: revoked", "token", token)
		return false
	}
	p, err := split(token)
	if err != nil {
		s.log.Debug("token rejected: malformed", "token", token)
		return false
	}
	if p.scope != expectedScope {
		s.log.Debug("token rejected: scope mismatch", "want", expectedScope, "got", p.scope)
		return false
	}
	if p.expiry <= s.now().Unix() {
		s.log.Debug("token rejected: expired", "expiry", p.expiry)
		return false
	}
	return true
}

// BindCheck reports whether the IP embedded between '@' and ':' in the
// token's user_id prefix equals sourceIP.
func (s *Service) BindCheck(token, sourceIP string) bool {
	p, err := split(token)
	if err != nil {
		return false
	}
	_, address, ok := strings.Cut(p.userID, "@")
	if !ok {
		return false
	}
	ip, _, _ := strings.Cut(address, ":")
	if ip == "" || ip != sourceIP {
		s.log.Debug("token rejected: IP binding mismatch", "token_ip", ip, "source_ip", sourceIP)
		return false
	}
	return true
}

// Revoke adds the exact token string to the persistent revoked set. A revoked
// token stays revoked forever; expiry never removes it.
func (s *Service) Revoke(token string) error {
	if err := s.revoked.Add(token); err != nil {
		return errors.NewTokenError("revoke", err)
	}
	s.log.Info("token revoked", "token", token)
	return nil
}

// IsRevoked reports membership in the revoked set.
func (s *Service) IsRevoked(token string) bool { return s.revoked.Contains(token) }
