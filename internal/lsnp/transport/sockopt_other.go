//go:build !unix

package transport

import "syscall"

// udpSockopts is a no-op on platforms without the unix sockopt surface; the
// Go runtime's defaults are accepted there.
func udpSockopts(network, address string, c syscall.RawConn) error { return nil }
