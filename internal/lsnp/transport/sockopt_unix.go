//go:build unix

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// udpSockopts enables broadcast sends on every socket the transport opens.
// SO_REUSEADDR is deliberately left off: on Linux it lets two UDP sockets
// bind the same port, which would break port probing.
func udpSockopts(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
