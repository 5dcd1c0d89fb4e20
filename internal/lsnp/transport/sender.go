package transport

// Outbound sender
// ---------------
// One long-lived goroutine owns the send socket and drains a bounded queue,
// so no two workers ever write the socket concurrently. The socket is bound
// to the chosen local IP (ephemeral port) with SO_BROADCAST enabled, which
// lets the same socket serve both unicast and subnet-broadcast sends and
// pins broadcasts to the intended interface.

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
)

const sendQueueDepth = 256

type outbound struct {
	payload []byte
	addr    *net.UDPAddr
}

// Sender serialises all outbound datagrams through a single socket.
type Sender struct {
	conn      *net.UDPConn
	localIP   string
	broadcast string
	queue     chan outbound
	log       *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewSender opens the send socket bound to localIP:0. The subnet broadcast
// address is resolved once at construction.
func NewSender(localIP string) (*Sender, error) {
	if localIP == "" {
		localIP = LocalIP()
	}
	lc := net.ListenConfig{Control: udpSockopts}
	pc, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort(localIP, "0"))
	if err != nil {
		return nil, fmt.Errorf("bind send socket to %s: %w", localIP, err)
	}
	s := &Sender{
		conn:      pc.(*net.UDPConn),
		localIP:   localIP,
		broadcast: SubnetBroadcast(localIP),
		queue:     make(chan outbound, sendQueueDepth),
		done:      make(chan struct{}),
	}
	s.log = logger.Logger().With("component", "sender", "local_ip", localIP, "broadcast", s.broadcast)
	go s.drain()
	return s, nil
}

// LocalIP returns the IP the send socket is bound to.
func (s *Sender) LocalIP() string { return s.localIP }

// BroadcastAddr returns the resolved subnet broadcast address ("" when the
// subnet could not be determined).
func (s *Sender) BroadcastAddr() string { return s.broadcast }

// drain is the single socket writer.
func (s *Sender) drain() {
	for {
		select {
		case <-s.done:
			return
		case out := <-s.queue:
			if _, err := s.conn.WriteToUDP(out.payload, out.addr); err != nil {
				s.log.Warn("send failed", "dest", out.addr.String(), "error", err)
			} else {
				s.log.Debug("sent", "dest", out.addr.String(), "bytes", len(out.payload))
			}
		}
	}
}

// enqueue queues one datagram with a short timeout for backpressure.
func (s *Sender) enqueue(payload []byte, addr *net.UDPAddr) error {
	deadline := time.NewTimer(200 * time.Millisecond)
	defer deadline.Stop()
	select {
	case <-s.done:
		return fmt.Errorf("sender closed")
	case s.queue <- outbound{payload: payload, addr: addr}:
		return nil
	case <-deadline.C:
		return fmt.Errorf("send queue full (len=%d)", len(s.queue))
	}
}

// Unicast sends one datagram to ip:port. The returned error covers local
// queueing only; it does not imply delivery.
func (s *Sender) Unicast(payload []byte, ip string, port int) error {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return fmt.Errorf("bad destination IP %q", ip)
	}
	return s.enqueue(payload, &net.UDPAddr{IP: parsed, Port: port})
}

// Broadcast sends one datagram to <subnet-broadcast>:BasePort. Subnet scope
// only; the sender refuses to fall back to the global broadcast address.
func (s *Sender) Broadcast(payload []byte) error {
	if s.broadcast == "" {
		return fmt.Errorf("no subnet broadcast address resolved")
	}
	parsed := net.ParseIP(s.broadcast)
	if parsed == nil {
		return fmt.Errorf("bad broadcast address %q", s.broadcast)
	}
	return s.enqueue(payload, &net.UDPAddr{IP: parsed, Port: BasePort})
}

// Close stops the drain goroutine and closes the socket.
func (s *Sender) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}
