package peer

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the well-known LSNP listening port used when a user_id
// carries no explicit port.
const DefaultPort = 50999

// Identity is a parsed LSNP user identity: username@ip:port. The port suffix
// is mandatory in canonical form; Parse fills it from the hint when absent.
type Identity struct {
	Username string
	IP       string
	Port     int
}

// String renders the canonical user_id.
func (id Identity) String() string {
	return fmt.Sprintf("%s@%s:%d", id.Username, id.IP, id.Port)
}

// Addr returns the identity's UDP address.
func (id Identity) Addr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(id.IP), Port: id.Port}
}

// Parse splits a user_id of the form username@ip[:port]. When the port is
// absent, portHint is used (pass 0 to fall back to the default port).
func Parse(userID string, portHint int) (Identity, error) {
	username, address, ok := strings.Cut(userID, "@")
	if !ok || username == "" || address == "" {
		return Identity{}, fmt.Errorf("malformed user_id %q", userID)
	}
	host, portStr, ok := strings.Cut(address, ":")
	if host == "" {
		return Identity{}, fmt.Errorf("malformed user_id %q", userID)
	}
	id := Identity{Username: strings.TrimSpace(username), IP: strings.TrimSpace(host)}
	if ok {
		p, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil || p <= 0 || p > 65535 {
			return Identity{}, fmt.Errorf("bad port in user_id %q", userID)
		}
		id.Port = p
		return id, nil
	}
	if portHint > 0 {
		id.Port = portHint
	} else {
		id.Port = DefaultPort
	}
	return id, nil
}

// Canonical rewrites a possibly-partial user_id to canonical username@ip:port
// form. Unparseable input is returned unchanged; the registry then refuses
// to store it.
func Canonical(userID string, portHint int) string {
	id, err := Parse(userID, portHint)
	if err != nil {
		return userID
	}
	return id.String()
}
