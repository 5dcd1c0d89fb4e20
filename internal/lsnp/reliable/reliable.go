// Package reliable retransmits unicast frames until the peer acknowledges
// them. Acknowledgements arrive on the node's main listener and are matched
// back to the waiting sender through a MESSAGE_ID table.
package reliable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

const (
	// AckTimeout bounds the wait for a single attempt's acknowledgement.
	AckTimeout = 2 * time.Second
	// MaxAttempts counts the initial send plus retries.
	MaxAttempts = 3
	// RetryDelay separates a timed-out attempt from the next send.
	RetryDelay = 1 * time.Second
)

// Transport is the unicast send surface the engine needs.
type Transport interface {
	Unicast(payload []byte, ip string, port int) error
}

// Engine correlates inbound ACK frames with in-flight sends.
type Engine struct {
	mu      sync.Mutex
	pending map[string]chan *proto.Ack

	send Transport
	log  *slog.Logger

	ackTimeout time.Duration
	retryDelay time.Duration
	attempts   int
}

// New returns an engine sending through t with the default retry schedule.
func New(t Transport) *Engine {
	return &Engine{
		pending:    make(map[string]chan *proto.Ack),
		send:       t,
		log:        logger.Logger().With("component", "reliable"),
		ackTimeout: AckTimeout,
		retryDelay: RetryDelay,
		attempts:   MaxAttempts,
	}
}

// HandleAck routes an ACK to the sender waiting on its MESSAGE_ID. It
// reports whether a waiter consumed the frame; duplicate and stray ACKs
// return false and are dropped by the caller.
func (e *Engine) HandleAck(ack *proto.Ack) bool {
	e.mu.Lock()
	ch, ok := e.pending[ack.MessageID]
	if ok {
		delete(e.pending, ack.MessageID)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	ch <- ack
	return true
}

// Pending reports the number of in-flight sends. Test hook.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) register(messageID string) (chan *proto.Ack, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.pending[messageID]; dup {
		return nil, fmt.Errorf("message %s already in flight", messageID)
	}
	ch := make(chan *proto.Ack, 1)
	e.pending[messageID] = ch
	return ch, nil
}

func (e *Engine) unregister(messageID string) {
	e.mu.Lock()
	delete(e.pending, messageID)
	e.mu.Unlock()
}

// Send transmits payload to ip:port and waits for an ACK carrying messageID.
// Each attempt waits AckTimeout; timed-out attempts are retried after
// RetryDelay up to MaxAttempts total sends. The returned error is nil only
// if the peer acknowledged.
func (e *Engine) Send(ctx context.Context, messageID string, payload []byte, ip string, port int) error {
	ch, err := e.register(messageID)
	if err != nil {
		return errors.NewDeliveryError("send", err)
	}
	defer e.unregister(messageID)

	log := e.log.With("message_id", messageID, "dest", fmt.Sprintf("%s:%d", ip, port))
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return errors.NewDeliveryError("send", ctx.Err())
			}
			log.Debug("retransmitting", "attempt", attempt)
		}
		if err := e.send.Unicast(payload, ip, port); err != nil {
			return errors.NewDeliveryError("send", err)
		}

		timer := time.NewTimer(e.ackTimeout)
		select {
		case <-ch:
			timer.Stop()
			if attempt > 1 {
				log.Debug("acknowledged after retry", "attempt", attempt)
			}
			return nil
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.NewDeliveryError("send", ctx.Err())
		}
	}
	log.Warn("no acknowledgement", "attempts", e.attempts)
	return errors.NewTimeoutError("ack-wait", e.ackTimeout, fmt.Errorf("message %s unacknowledged after %d attempts", messageID, e.attempts))
}
