package node

import (
	"fmt"
	"net"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/game"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/peer"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

// tokenOf extracts the capability token from messages that carry one.
func tokenOf(msg proto.Message) string {
	switch m := msg.(type) {
	case *proto.Post:
		return m.Token
	case *proto.DM:
		return m.Token
	case *proto.Follow:
		return m.Token
	case *proto.Unfollow:
		return m.Token
	case *proto.Like:
		return m.Token
	case *proto.FileOffer:
		return m.Token
	case *proto.FileChunk:
		return m.Token
	case *proto.TTTInvite:
		return m.Token
	case *proto.TTTMove:
		return m.Token
	case *proto.TTTResult:
		return m.Token
	case *proto.TTTStateRequest:
		return m.Token
	case *proto.TTTStateResponse:
		return m.Token
	case *proto.TTTMoveRequest:
		return m.Token
	case *proto.GroupCreate:
		return m.Token
	case *proto.GroupUpdate:
		return m.Token
	case *proto.GroupMessage:
		return m.Token
	}
	return ""
}

// handleDatagram is the inbound pipeline: decode, self-echo suppression,
// REVOKE short-circuit, token validation with IP binding, peer upsert,
// then the per-type handler. A handler failure drops the frame with a
// diagnostic; nothing propagates past this boundary.
func (n *Node) handleDatagram(data []byte, src *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("handler panic", "panic", r, "src", src.String())
		}
	}()

	frame, err := proto.Decode(data)
	if err != nil {
		n.log.Debug("undecodable datagram", "src", src.String(), "error", err)
		return
	}
	msg, err := proto.Parse(frame)
	if err != nil {
		n.log.Debug("malformed frame", "type", frame.Type(), "src", src.String(), "error", err)
		n.emit(EventDropped, frame.Sender(), fmt.Sprintf("dropped %s: %v", frame.Type(), err), frame.Map())
		return
	}

	log := logger.WithPeer(logger.WithFrame(n.log, frame.Type(), frame.Get(proto.FieldMessageID)), frame.Sender(), src.String())

	// ACKs carry no sender identity; they loop straight back to the
	// reliable engine's pending table.
	if ack, ok := msg.(*proto.Ack); ok {
		if !n.reliable.HandleAck(ack) {
			log.Debug("stray ack", "message_id", ack.MessageID)
		}
		return
	}

	sender := peer.Canonical(frame.Sender(), src.Port)
	if sender == "" {
		log.Debug("frame without sender")
		return
	}
	if sender == n.userID {
		return // self-echo from our own broadcast
	}

	// REVOKE is honored before any validity check so a compromised token
	// can always be withdrawn.
	if rev, ok := msg.(*proto.Revoke); ok {
		if err := n.tokens.Revoke(rev.Token); err != nil {
			log.Warn("revoke failed", "error", err)
			return
		}
		log.Info("token revoked", "by", sender)
		return
	}

	if scope, need := proto.RequiredScope(frame.Type()); need {
		tok := tokenOf(msg)
		if !n.tokens.Validate(tok, scope) {
			log.Warn("invalid token", "scope", scope)
			n.emit(EventDropped, sender, fmt.Sprintf("dropped %s from %s: invalid token", frame.Type(), sender), frame.Map())
			return
		}
		if !n.tokens.BindCheck(tok, src.IP.String()) {
			log.Warn("token ip mismatch", "source_ip", src.IP.String())
			n.emit(EventDropped, sender, fmt.Sprintf("dropped %s from %s: token/source IP mismatch", frame.Type(), sender), frame.Map())
			return
		}
	}

	n.peers.Upsert(frame.Sender(), src.IP.String(), src.Port, frame.Get(proto.FieldDisplayName))

	switch m := msg.(type) {
	case *proto.Profile:
		n.handleProfile(m, src, sender)
	case *proto.Ping:
		n.handlePing(src, sender)
	case *proto.Post:
		n.handlePost(m, sender)
	case *proto.DM:
		n.handleDM(m, sender)
	case *proto.Follow:
		n.social.AddFollower(sender)
		n.emit(EventFollow, sender, fmt.Sprintf("%s followed you", sender), nil)
	case *proto.Unfollow:
		n.social.RemoveFollower(sender)
		n.emit(EventUnfollow, sender, fmt.Sprintf("%s unfollowed you", sender), nil)
	case *proto.Like:
		n.handleLike(m, sender)
	case *proto.FileOffer:
		in := n.files.HandleOffer(m)
		n.emit(EventFileOffer, sender, fmt.Sprintf("%s offers %s (%d bytes, %s)", sender, in.Filename, in.Filesize, in.Filetype),
			map[string]string{"file_id": in.FileID, "description": in.Description})
	case *proto.FileChunk:
		n.handleFileChunk(m, sender)
	case *proto.FileReceived:
		n.files.FinishOutbound(m.FileID)
		n.emit(EventFileStatus, sender, fmt.Sprintf("%s reports file %s: %s", sender, m.FileID, m.Status), nil)
	case *proto.TTTInvite:
		g := n.games.HandleInvite(m)
		n.emit(EventGameInvite, sender, fmt.Sprintf("%s invites you to tic-tac-toe (game %s, you are %s)", sender, g.ID, g.MySymbol),
			map[string]string{"game_id": g.ID, "symbol": g.MySymbol})
	case *proto.TTTMove:
		n.handleGameMove(m, sender)
	case *proto.TTTResult:
		// Both sides detect a finished board, so the loser's RESULT can
		// cross ours for a game we already closed and announced; only a
		// live game surfaces an event. Still ACK so the sender stops
		// retrying.
		live := n.games.HandleResult(m.GameID)
		n.ack(m.MessageID, sender)
		if live {
			n.emit(EventGameResult, sender, fmt.Sprintf("game %s finished: %s", m.GameID, m.Result),
				map[string]string{"winning_line": m.WinningLine})
		}
	case *proto.TTTStateRequest:
		n.handleStateRequest(m, sender)
	case *proto.TTTStateResponse:
		n.handleStateResponse(m, sender)
	case *proto.TTTMoveRequest:
		n.handleMoveRequest(m, sender)
	case *proto.GroupCreate:
		n.handleGroupCreate(m, sender)
	case *proto.GroupUpdate:
		n.handleGroupUpdate(m, sender)
	case *proto.GroupMessage:
		n.handleGroupMessage(m, sender)
	default:
		log.Debug("unhandled message type")
	}
}

// ack confirms a reliable frame after its state has been applied.
func (n *Node) ack(messageID, to string) {
	if messageID == "" {
		return
	}
	if err := n.sendFrame(&proto.Ack{MessageID: messageID, Status: proto.StatusReceived}, to); err != nil {
		n.log.Debug("ack send failed", "message_id", messageID, "to", to, "error", err)
	}
}

func (n *Node) handleProfile(m *proto.Profile, src *net.UDPAddr, sender string) {
	n.peers.SetProfile(m.UserID, src.IP.String(), src.Port, m.DisplayName, m.Status, m.AvatarType, m.AvatarData)
	n.emit(EventProfile, sender, fmt.Sprintf("%s is %q (%s)", m.DisplayName, m.Status, sender), nil)
}

// handlePing answers every presence probe with a unicast PROFILE so new
// peers learn our display name without waiting for the next broadcast.
func (n *Node) handlePing(src *net.UDPAddr, sender string) {
	ip, port, err := n.resolve(sender)
	if err != nil {
		ip, port = src.IP.String(), src.Port
	}
	if err := n.sender.Unicast(n.profileMessage().ToFrame().Encode(), ip, port); err != nil {
		n.log.Debug("profile reply failed", "to", sender, "error", err)
		return
	}
	n.peers.MarkProfileSent(sender, time.Now())
	n.emit(EventPeerSeen, sender, fmt.Sprintf("%s is online", sender), nil)
}

// handlePost surfaces posts from followed authors only; others still feed
// the registry but stay out of the feed.
func (n *Node) handlePost(m *proto.Post, sender string) {
	if !n.social.IsFollowing(sender) {
		n.log.Debug("post from unfollowed author", "from", sender)
		return
	}
	n.emit(EventPost, sender, fmt.Sprintf("%s: %s", sender, m.Content),
		map[string]string{"timestamp": fmt.Sprintf("%d", m.Timestamp)})
}

func (n *Node) handleDM(m *proto.DM, sender string) {
	if n.social.SeenMessage(m.MessageID) {
		n.ack(m.MessageID, sender) // retransmit; state already applied
		return
	}
	n.emit(EventDM, sender, fmt.Sprintf("[DM] %s: %s", sender, m.Content), nil)
	n.ack(m.MessageID, sender)
}

func (n *Node) handleLike(m *proto.Like, sender string) {
	verb := "likes"
	if m.Action == proto.ActionUnlike {
		verb = "unliked"
	}
	n.emit(EventLike, sender, fmt.Sprintf("%s %s your post [%d]", sender, verb, m.PostTimestamp),
		map[string]string{"action": m.Action})
}

func (n *Node) handleFileChunk(m *proto.FileChunk, sender string) {
	path, done, err := n.files.HandleChunk(m)
	if err != nil {
		n.log.Warn("chunk failed", "file_id", m.FileID, "error", err)
		n.sendFileReceived(m.FileID, sender, proto.StatusError)
		n.emit(EventFileStatus, sender, fmt.Sprintf("file %s failed: %v", m.FileID, err), nil)
		return
	}
	if done {
		n.sendFileReceived(m.FileID, sender, proto.StatusComplete)
		n.emit(EventFileComplete, sender, fmt.Sprintf("file %s saved to %s", m.FileID, path), nil)
	}
}

func (n *Node) sendFileReceived(fileID, to, status string) {
	msg := &proto.FileReceived{
		From:      n.userID,
		To:        to,
		FileID:    fileID,
		Status:    status,
		Timestamp: time.Now().Unix(),
	}
	if err := n.sendFrame(msg, to); err != nil {
		n.log.Debug("file receipt send failed", "file_id", fileID, "error", err)
	}
}

func (n *Node) handleGameMove(m *proto.TTTMove, sender string) {
	v := n.games.HandleMove(m)
	switch v.Kind {
	case game.VerdictDuplicate:
		n.ack(m.MessageID, sender)
	case game.VerdictNeedState:
		req := &proto.TTTStateRequest{
			From: n.userID, To: sender, GameID: m.GameID,
			MessageID: proto.NewID(), Timestamp: time.Now().Unix(),
			Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
		}
		if err := n.sendFrame(req, sender); err != nil {
			n.log.Debug("state request failed", "game_id", m.GameID, "error", err)
		}
	case game.VerdictNeedHistory:
		req := &proto.TTTMoveRequest{
			From: n.userID, To: sender, GameID: m.GameID,
			FromTurn: v.FromTurn, ToTurn: v.ToTurn,
			MessageID: proto.NewID(), Timestamp: time.Now().Unix(),
			Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
		}
		if err := n.sendFrame(req, sender); err != nil {
			n.log.Debug("move request failed", "game_id", m.GameID, "error", err)
		}
	case game.VerdictRejected:
		n.log.Warn("illegal move dropped", "game_id", m.GameID, "turn", m.Turn, "position", m.Position)
	case game.VerdictApplied:
		for _, applied := range v.Applied {
			n.ack(applied.MessageID, sender)
			n.emit(EventGameMove, sender, fmt.Sprintf("game %s: %s at %d (turn %d)", m.GameID, applied.Symbol, applied.Position, applied.Turn), nil)
		}
		if v.Result != nil {
			n.finishGame(m.GameID, sender, v.Result)
		}
	}
}

// finishGame announces a detected result to the opponent and deletes the
// game locally.
func (n *Node) finishGame(gameID, opponent string, res *game.Result) {
	msg := &proto.TTTResult{
		From: n.userID, To: opponent, GameID: gameID,
		MessageID: proto.NewID(), Result: res.Outcome,
		WinningLine: res.LineString(), Timestamp: time.Now().Unix(),
		Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
	}
	n.games.Finish(gameID)
	n.emit(EventGameResult, n.userID, fmt.Sprintf("game %s finished: %s", gameID, res.Outcome),
		map[string]string{"winning_line": res.LineString()})

	// Reliable, but off the dispatcher goroutine: the ACK arrives through
	// this same listener.
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.sendReliable(n.ctx, msg, msg.MessageID, opponent); err != nil {
			n.log.Warn("result delivery failed", "game_id", gameID, "error", err)
		}
	}()
}

func (n *Node) handleStateRequest(m *proto.TTTStateRequest, sender string) {
	board, next, err := n.games.StateResponse(m.GameID)
	if err != nil {
		n.log.Debug("state request for unknown game", "game_id", m.GameID)
		return
	}
	resp := &proto.TTTStateResponse{
		From: n.userID, To: sender, GameID: m.GameID,
		Board: board, Turn: next,
		MessageID: proto.NewID(), Timestamp: time.Now().Unix(),
		Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
	}
	if err := n.sendFrame(resp, sender); err != nil {
		n.log.Debug("state response failed", "game_id", m.GameID, "error", err)
	}
}

func (n *Node) handleStateResponse(m *proto.TTTStateResponse, sender string) {
	mySymbol := game.SymbolO
	if g, ok := n.games.Get(m.GameID); ok {
		mySymbol = g.MySymbol
	}
	if err := n.games.AdoptState(m, mySymbol); err != nil {
		n.log.Warn("state adoption failed", "game_id", m.GameID, "error", err)
		return
	}
	n.emit(EventGameMove, sender, fmt.Sprintf("game %s resynchronised (turn %d)", m.GameID, m.Turn), nil)
}

// handleMoveRequest replays our own moves in the requested turn range.
func (n *Node) handleMoveRequest(m *proto.TTTMoveRequest, sender string) {
	moves, err := n.games.MovesInRange(m.GameID, m.FromTurn, m.ToTurn)
	if err != nil {
		n.log.Debug("move request for unknown game", "game_id", m.GameID)
		return
	}
	for _, mv := range moves {
		replay := &proto.TTTMove{
			From: n.userID, To: sender, GameID: m.GameID,
			MessageID: proto.NewID(), Position: mv.Position,
			Symbol: mv.Symbol, Turn: mv.Turn,
			Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
		}
		if err := n.sendFrame(replay, sender); err != nil {
			n.log.Debug("move replay failed", "game_id", m.GameID, "turn", mv.Turn, "error", err)
		}
	}
}

func (n *Node) handleGroupCreate(m *proto.GroupCreate, sender string) {
	g, err := n.groups.Create(m)
	if err != nil {
		n.log.Warn("group create rejected", "group_id", m.GroupID, "error", err)
		return
	}
	n.emit(EventGroupCreate, sender, fmt.Sprintf("%s added you to group %q (%s)", sender, g.Name, g.ID), nil)
}

func (n *Node) handleGroupUpdate(m *proto.GroupUpdate, sender string) {
	g, err := n.groups.Update(m)
	if err != nil {
		n.log.Warn("group update rejected", "group_id", m.GroupID, "error", err)
		return
	}
	n.emit(EventGroupUpdate, sender, fmt.Sprintf("group %q membership updated", g.Name), nil)
}

func (n *Node) handleGroupMessage(m *proto.GroupMessage, sender string) {
	if !n.groups.Authorize(m.GroupID, sender) {
		n.log.Debug("group message from non-member", "group_id", m.GroupID, "from", sender)
		return
	}
	n.emit(EventGroupMessage, sender, fmt.Sprintf("[%s] %s: %s", m.GroupID, sender, m.Content), nil)
}
