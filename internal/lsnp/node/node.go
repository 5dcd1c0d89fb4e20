// Package node wires the protocol services together: it owns the listener,
// the single outbound sender, the peer registry, tokens, reliable delivery,
// transfers, games, groups and social state, and runs the dispatcher that
// routes every inbound frame. The CLI talks to it through the command
// surface (commands.go) and hears back through the event sink (events.go).
package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/config"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/game"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/group"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/peer"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/reliable"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/social"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/token"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/transfer"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/transport"
)

// Node is one LSNP participant.
type Node struct {
	cfg *config.Config
	log *slog.Logger

	userID      string
	localIP     string
	displayName string
	status      string

	mu         sync.Mutex
	avatarType string
	avatarData string // base64

	listener *transport.Listener
	sender   *transport.Sender
	tokens   *token.Service
	peers    *peer.Registry
	reliable *reliable.Engine
	files    *transfer.Manager
	games    *game.Manager
	groups   *group.Store
	social   *social.Service
	sink     Sink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an unstarted node: it binds the listening port (probing
// upward from cfg.Port), opens the revoked-token store under cfg.DataDir
// and derives the canonical user_id from the bound port.
func New(cfg *config.Config, sink Sink) (*Node, error) {
	if sink == nil {
		sink = NopSink{}
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	listener, err := transport.Listen(cfg.Port)
	if err != nil {
		return nil, err
	}

	localIP := transport.LocalIP()
	sender, err := transport.NewSender(localIP)
	if err != nil {
		listener.Close()
		return nil, err
	}

	revoked, err := token.OpenRevokedStore(filepath.Join(cfg.DataDir, token.RevokedFileName))
	if err != nil {
		listener.Close()
		sender.Close()
		return nil, err
	}

	n := &Node{
		cfg:         cfg,
		log:         logger.Logger().With("component", "node"),
		userID:      fmt.Sprintf("%s@%s:%d", cfg.Username, localIP, listener.Port()),
		localIP:     localIP,
		displayName: cfg.DisplayName,
		status:      cfg.Status,
		listener:    listener,
		sender:      sender,
		tokens:      token.NewService(revoked),
		peers:       peer.NewRegistry(),
		files:       transfer.NewManager(filepath.Join(cfg.DataDir, "downloads")),
		games:       game.NewManager(),
		groups:      group.NewStore(),
		sink:        sink,
	}
	n.reliable = reliable.New(sender)
	if n.social, err = social.NewService(); err != nil {
		listener.Close()
		sender.Close()
		return nil, err
	}
	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.log.Info("node ready", "user_id", n.userID, "port", listener.Port(), "broadcast", sender.BroadcastAddr())
	return n, nil
}

// Start launches the listen loop, presence loops and the game sweeper.
func (n *Node) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.listener.Serve(n.ctx, n.handleDatagram); err != nil {
			n.log.Error("listener exited", "error", err)
		}
	}()

	n.wg.Add(2)
	go n.presenceLoop()
	go n.sweepLoop()
}

// Stop shuts the node down and waits for in-flight work.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.listener.Close()
	n.wg.Wait()
	n.sender.Close()
}

// UserID returns this node's canonical identity string.
func (n *Node) UserID() string { return n.userID }

// Port returns the bound listening port.
func (n *Node) Port() int { return n.listener.Port() }

// DataDir returns the directory holding downloads and persistent state.
func (n *Node) DataDir() string { return n.cfg.DataDir }

// Peers lists every known peer except this node.
func (n *Node) Peers() []peer.Peer { return n.peers.List(n.userID) }

// SetVerbose toggles debug-level logging at runtime.
func (n *Node) SetVerbose(on bool) {
	if on {
		_ = logger.SetLevel("debug")
	} else {
		_ = logger.SetLevel("info")
	}
}

// SetAvatar installs a pre-encoded avatar carried on future PROFILE frames.
// Encoding from disk is the CLI's job; the node takes MIME type plus base64.
// The avatar is refused when it would push the PROFILE frame past the
// datagram bound, since peers read at most that many bytes and would drop
// the truncated frame.
func (n *Node) SetAvatar(mimeType, base64Data string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	candidate := &proto.Profile{
		UserID:      n.userID,
		DisplayName: n.displayName,
		Status:      n.status,
		Port:        int64(n.Port()),
		AvatarType:  mimeType,
		AvatarData:  base64Data,
	}
	if size := len(candidate.ToFrame().Encode()); size > proto.MaxFrameSize {
		return fmt.Errorf("avatar makes PROFILE %d bytes, max %d", size, proto.MaxFrameSize)
	}
	n.avatarType, n.avatarData = mimeType, base64Data
	return nil
}

func (n *Node) avatar() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.avatarType, n.avatarData
}

// resolve finds the address to unicast to for userID: registry entry first,
// falling back to the address embedded in the user_id itself.
func (n *Node) resolve(userID string) (string, int, error) {
	if ip, port, ok := n.peers.Resolve(userID); ok {
		return ip, port, nil
	}
	return "", 0, fmt.Errorf("unknown peer %s", userID)
}

func (n *Node) emit(kind EventKind, from, summary string, fields map[string]string) {
	n.sink.Publish(Event{Kind: kind, From: from, Summary: summary, Fields: fields, Time: time.Now()})
}

// sendFrame encodes and unicasts one frame to userID (no delivery
// guarantee).
func (n *Node) sendFrame(msg proto.Message, userID string) error {
	ip, port, err := n.resolve(userID)
	if err != nil {
		return err
	}
	return n.sender.Unicast(msg.ToFrame().Encode(), ip, port)
}

// sendReliable unicasts a frame carrying messageID and blocks until the
// peer ACKs or retries are exhausted.
func (n *Node) sendReliable(ctx context.Context, msg proto.Message, messageID, userID string) error {
	ip, port, err := n.resolve(userID)
	if err != nil {
		return err
	}
	return n.reliable.Send(ctx, messageID, msg.ToFrame().Encode(), ip, port)
}
