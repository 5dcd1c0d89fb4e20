package transport

// UDP listener
// ------------
// Binds 0.0.0.0 on the well-known LSNP port, probing upward through a fixed
// window when the port is taken (multiple nodes on one host). Each datagram
// is copied out of the pooled receive buffer and handed to the dispatch
// callback on its own goroutine so a slow handler never stalls the socket.

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/Solenad/mp-csnetwk-group4/internal/bufpool"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

const (
	// BasePort is the default LSNP listening port.
	BasePort = 50999
	// MaxPortAttempts bounds the probe window above BasePort.
	MaxPortAttempts = 100
)

// DatagramHandler receives one decoded-off-the-wire datagram with its source.
type DatagramHandler func(data []byte, src *net.UDPAddr)

// Listener owns the main receive socket. ACK correlation and all inbound
// traffic flow through this one socket.
type Listener struct {
	conn *net.UDPConn
	port int
	log  *slog.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// Listen binds the first free port in [basePort, basePort+MaxPortAttempts).
// A zero basePort selects BasePort.
func Listen(basePort int) (*Listener, error) {
	if basePort <= 0 {
		basePort = BasePort
	}
	lc := net.ListenConfig{Control: udpSockopts}
	var lastErr error
	for i := 0; i < MaxPortAttempts; i++ {
		port := basePort + i
		pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			lastErr = err
			continue
		}
		l := &Listener{
			conn: pc.(*net.UDPConn),
			port: port,
			log:  logger.Logger().With("component", "listener"),
		}
		l.log.Info("listening", "port", port)
		return l, nil
	}
	return nil, fmt.Errorf("no free port in %d..%d: %w", basePort, basePort+MaxPortAttempts-1, lastErr)
}

// Port returns the bound port.
func (l *Listener) Port() int { return l.port }

// LocalAddr returns the socket address.
func (l *Listener) LocalAddr() net.Addr { return l.conn.LocalAddr() }

// Serve reads datagrams until the listener is closed or ctx is cancelled.
// Each datagram is dispatched on its own goroutine.
func (l *Listener) Serve(ctx context.Context, handler DatagramHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler")
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	buf := bufpool.Get(proto.MaxFrameSize)
	defer bufpool.Put(buf)
	for {
		n, src, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()
			if closing || ctx.Err() != nil {
				l.wg.Wait()
				return nil
			}
			l.log.Warn("read error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			handler(data, src)
		}()
	}
}

// Close shuts the socket; Serve returns after in-flight handlers finish.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return nil
	}
	l.closing = true
	l.mu.Unlock()
	return l.conn.Close()
}
