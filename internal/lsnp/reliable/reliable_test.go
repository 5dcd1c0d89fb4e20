package reliable

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

type fakeTransport struct {
	mu    sync.Mutex
	sends int
	onSend func(attempt int)
}

func (f *fakeTransport) Unicast(payload []byte, ip string, port int) error {
	f.mu.Lock()
	f.sends++
	n := f.sends
	cb := f.onSend
	f.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func newTestEngine(t *fakeTransport) *Engine {
	e := New(t)
	e.ackTimeout = 30 * time.Millisecond
	e.retryDelay = 10 * time.Millisecond
	return e
}

func TestSendAckedFirstAttempt(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)
	ft.onSend = func(int) {
		go e.HandleAck(&proto.Ack{MessageID: "deadbeef", Status: proto.StatusReceived})
	}

	if err := e.Send(context.Background(), "deadbeef", []byte("x"), "127.0.0.1", 50999); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := ft.count(); got != 1 {
		t.Fatalf("want 1 send, got %d", got)
	}
	if e.Pending() != 0 {
		t.Fatalf("pending entry leaked")
	}
}

func TestSendRetriesThenAcked(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)
	ft.onSend = func(attempt int) {
		if attempt == 3 {
			go e.HandleAck(&proto.Ack{MessageID: "aa11bb22"})
		}
	}

	if err := e.Send(context.Background(), "aa11bb22", []byte("x"), "127.0.0.1", 50999); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := ft.count(); got != 3 {
		t.Fatalf("want 3 sends, got %d", got)
	}
}

func TestSendExhaustsAttempts(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	err := e.Send(context.Background(), "00000001", []byte("x"), "127.0.0.1", 50999)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.IsTimeout(err) {
		t.Fatalf("want timeout error, got %T: %v", err, err)
	}
	if got := ft.count(); got != MaxAttempts {
		t.Fatalf("want %d sends, got %d", MaxAttempts, got)
	}
	if e.Pending() != 0 {
		t.Fatalf("pending entry leaked after failure")
	}
}

func TestSendContextCancelled(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Send(ctx, "cafef00d", []byte("x"), "127.0.0.1", 50999); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestStrayAckNotConsumed(t *testing.T) {
	e := newTestEngine(&fakeTransport{})
	if e.HandleAck(&proto.Ack{MessageID: "feedface"}) {
		t.Fatalf("stray ACK should not be consumed")
	}
}

func TestDuplicateInFlightRejected(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)
	done := make(chan error, 1)
	go func() {
		done <- e.Send(context.Background(), "11112222", []byte("x"), "127.0.0.1", 50999)
	}()
	// Wait for the first send to be registered.
	for i := 0; i < 100 && e.Pending() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if err := e.Send(context.Background(), "11112222", []byte("y"), "127.0.0.1", 50999); err == nil {
		t.Fatalf("expected duplicate in-flight rejection")
	}
	e.HandleAck(&proto.Ack{MessageID: "11112222"})
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
}
