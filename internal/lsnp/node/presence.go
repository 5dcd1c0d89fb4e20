package node

import (
	"fmt"
	"time"
)

const (
	// discoveryBurst is how long the startup PROFILE+PING burst lasts,
	// one pair per second.
	discoveryBurst = 5 * time.Second
	// pingInterval is the steady-state presence cadence after the burst.
	pingInterval = 300 * time.Second
	// sweepInterval is how often idle games are collected.
	sweepInterval = 10 * time.Second
)

// presenceLoop announces this node: a PROFILE+PING pair every second for
// the first five seconds so fresh peers converge quickly, then a PING
// every five minutes.
func (n *Node) presenceLoop() {
	defer n.wg.Done()

	announce := func() {
		if err := n.SendProfile(); err != nil {
			n.log.Debug("profile broadcast failed", "error", err)
		}
		if err := n.SendPing(); err != nil {
			n.log.Debug("ping broadcast failed", "error", err)
		}
	}

	burst := time.NewTicker(time.Second)
	burstEnd := time.NewTimer(discoveryBurst)
	announce()
burstLoop:
	for {
		select {
		case <-burst.C:
			announce()
		case <-burstEnd.C:
			break burstLoop
		case <-n.ctx.Done():
			burst.Stop()
			burstEnd.Stop()
			return
		}
	}
	burst.Stop()

	steady := time.NewTicker(pingInterval)
	defer steady.Stop()
	for {
		select {
		case <-steady.C:
			if err := n.SendPing(); err != nil {
				n.log.Debug("ping broadcast failed", "error", err)
			}
		case <-n.ctx.Done():
			return
		}
	}
}

// sweepLoop garbage-collects idle games and surfaces a notice per game.
func (n *Node) sweepLoop() {
	defer n.wg.Done()
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			for _, id := range n.games.Sweep() {
				n.emit(EventGameExpired, n.userID, fmt.Sprintf("game %s expired after inactivity", id), nil)
			}
		case <-n.ctx.Done():
			return
		}
	}
}
