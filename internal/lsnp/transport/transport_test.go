package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

func TestBroadcastOf(t *testing.T) {
	cases := []struct {
		cidr string
		want string
	}{
		{"192.168.1.10/24", "192.168.1.255"},
		{"10.0.0.5/8", "10.255.255.255"},
		{"172.16.4.2/22", "172.16.7.255"},
		{"192.168.1.10/32", "192.168.1.10"},
	}
	for _, tc := range cases {
		_, ipnet, err := net.ParseCIDR(tc.cidr)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.cidr, err)
		}
		if got := broadcastOf(ipnet); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.cidr, tc.want, got)
		}
	}
}

func TestFallbackBroadcast(t *testing.T) {
	if got := fallbackBroadcast("192.168.7.33"); got != "192.168.7.255" {
		t.Fatalf("unexpected fallback %q", got)
	}
	// Never degrade to the global broadcast address.
	if got := fallbackBroadcast("not-an-ip"); got != "" {
		t.Fatalf("expected empty fallback, got %q", got)
	}
}

func TestListenProbesToNextPort(t *testing.T) {
	// Occupy an arbitrary base port, then expect the probe to land above it.
	l1, err := Listen(0)
	if err != nil {
		t.Fatalf("listen 1: %v", err)
	}
	defer l1.Close()

	l2, err := Listen(l1.Port())
	if err != nil {
		t.Fatalf("listen 2: %v", err)
	}
	defer l2.Close()

	if l2.Port() <= l1.Port() {
		t.Fatalf("expected probed port above %d, got %d", l1.Port(), l2.Port())
	}
}

func TestServeDeliversDatagramWithSource(t *testing.T) {
	l, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type recv struct {
		data []byte
		src  *net.UDPAddr
	}
	got := make(chan recv, 1)
	var once sync.Once
	go func() {
		_ = l.Serve(ctx, func(data []byte, src *net.UDPAddr) {
			once.Do(func() { got <- recv{data: data, src: src} })
		})
	}()

	conn, err := net.Dial("udp4", l.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	payload := []byte("TYPE: PING\nUSER_ID: t@127.0.0.1:50999\n\n")
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case r := <-got:
		if string(r.data) != string(payload) {
			t.Fatalf("payload mismatch: %q", r.data)
		}
		if r.src == nil || !r.src.IP.IsLoopback() {
			t.Fatalf("unexpected source %v", r.src)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("datagram not delivered")
	}
}

func TestSenderUnicastReachesListener(t *testing.T) {
	l, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan []byte, 1)
	var once sync.Once
	go func() {
		_ = l.Serve(ctx, func(data []byte, _ *net.UDPAddr) {
			once.Do(func() { got <- data })
		})
	}()

	s, err := NewSender("127.0.0.1")
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	defer s.Close()

	if err := s.Unicast([]byte("TYPE: PING\nUSER_ID: s@127.0.0.1:50999\n\n"), "127.0.0.1", l.Port()); err != nil {
		t.Fatalf("unicast: %v", err)
	}

	select {
	case data := <-got:
		if len(data) == 0 {
			t.Fatalf("empty datagram")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("unicast not delivered")
	}
}

func TestSenderRejectsBadIP(t *testing.T) {
	s, err := NewSender("127.0.0.1")
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	defer s.Close()
	if err := s.Unicast([]byte("x"), "bogus", 50999); err == nil {
		t.Fatalf("expected error for bad IP")
	}
}
