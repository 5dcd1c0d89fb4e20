package node

import (
	"context"
	"fmt"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/transfer"
)

// The command surface: everything the CLI can originate. Each command
// builds a typed frame, stamps it with a freshly issued token and hands it
// to the broadcast or (reliable) unicast path.

func (n *Node) profileMessage() *proto.Profile {
	avatarType, avatarData := n.avatar()
	return &proto.Profile{
		UserID:      n.userID,
		DisplayName: n.displayName,
		Status:      n.status,
		Port:        int64(n.Port()),
		AvatarType:  avatarType,
		AvatarData:  avatarData,
	}
}

// SendProfile broadcasts this node's PROFILE.
func (n *Node) SendProfile() error {
	return n.sender.Broadcast(n.profileMessage().ToFrame().Encode())
}

// SendHello unicasts our PROFILE to a specific address, introducing this
// node to a peer the broadcast cannot reach.
func (n *Node) SendHello(ip string, port int) error {
	return n.sender.Unicast(n.profileMessage().ToFrame().Encode(), ip, port)
}

// SendPing broadcasts a presence probe.
func (n *Node) SendPing() error {
	return n.sender.Broadcast((&proto.Ping{UserID: n.userID}).ToFrame().Encode())
}

// SetStatus updates the status line carried on future PROFILE frames and
// broadcasts the change.
func (n *Node) SetStatus(status string) error {
	n.mu.Lock()
	n.status = status
	n.mu.Unlock()
	return n.SendProfile()
}

// SendPost broadcasts a post to everyone on the subnet; only followers
// surface it.
func (n *Node) SendPost(content string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	msg := &proto.Post{
		UserID:    n.userID,
		Content:   content,
		TTL:       int64(ttl.Seconds()),
		Timestamp: time.Now().Unix(),
		MessageID: proto.NewID(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeBroadcast, ttl),
	}
	return n.sender.Broadcast(msg.ToFrame().Encode())
}

// SendDM delivers a direct message with acknowledgement; it blocks until
// the peer ACKs or retries are exhausted.
func (n *Node) SendDM(ctx context.Context, to, content string) error {
	msg := &proto.DM{
		From:      n.userID,
		To:        to,
		Content:   content,
		Timestamp: time.Now().Unix(),
		MessageID: proto.NewID(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeChat, 0),
	}
	return n.sendReliable(ctx, msg, msg.MessageID, to)
}

// Follow tells a peer we follow them and records it locally.
func (n *Node) Follow(to string) error {
	msg := &proto.Follow{
		From: n.userID, To: to,
		MessageID: proto.NewID(), Timestamp: time.Now().Unix(),
		Token: n.tokens.Issue(n.userID, proto.ScopeFollow, 0),
	}
	if err := n.sendFrame(msg, to); err != nil {
		return err
	}
	n.social.Follow(to)
	return nil
}

// Unfollow reverses Follow.
func (n *Node) Unfollow(to string) error {
	msg := &proto.Unfollow{
		From: n.userID, To: to,
		MessageID: proto.NewID(), Timestamp: time.Now().Unix(),
		Token: n.tokens.Issue(n.userID, proto.ScopeFollow, 0),
	}
	if err := n.sendFrame(msg, to); err != nil {
		return err
	}
	n.social.Unfollow(to)
	return nil
}

// Like reacts to a peer's post, identified by its broadcast timestamp.
// A second Like of the same post is rejected locally.
func (n *Node) Like(to string, postTimestamp int64) error {
	if !n.social.Like(to, postTimestamp) {
		return errors.NewPeerError("like", fmt.Errorf("post %s/%d already liked", to, postTimestamp))
	}
	if err := n.sendLike(to, postTimestamp, proto.ActionLike); err != nil {
		n.social.Unlike(to, postTimestamp) // revert tentative state
		return err
	}
	return nil
}

// Unlike withdraws a previous Like.
func (n *Node) Unlike(to string, postTimestamp int64) error {
	if !n.social.Unlike(to, postTimestamp) {
		return errors.NewPeerError("unlike", fmt.Errorf("post %s/%d not liked", to, postTimestamp))
	}
	if err := n.sendLike(to, postTimestamp, proto.ActionUnlike); err != nil {
		n.social.Like(to, postTimestamp)
		return err
	}
	return nil
}

func (n *Node) sendLike(to string, postTimestamp int64, action string) error {
	msg := &proto.Like{
		From: n.userID, To: to,
		Action: action, PostTimestamp: postTimestamp,
		Timestamp: time.Now().Unix(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeBroadcast, 0),
	}
	return n.sendFrame(msg, to)
}

// RevokeToken broadcasts a REVOKE for a token this node issued and adds it
// to the local revoked set.
func (n *Node) RevokeToken(tok string) error {
	if err := n.tokens.Revoke(tok); err != nil {
		return err
	}
	msg := &proto.Revoke{From: n.userID, Token: tok}
	return n.sender.Broadcast(msg.ToFrame().Encode())
}

// OfferFile reads path, registers the transfer and unicasts the FILE_OFFER.
// Chunks follow via SendFileChunks once the CLI decides the peer has had a
// chance to accept.
func (n *Node) OfferFile(to, path, description string) (string, error) {
	if description == "" {
		description = "file transfer"
	}
	out, err := transfer.PrepareOutbound(path, to, description)
	if err != nil {
		return "", err
	}
	n.files.TrackOutbound(out)
	offer := out.Offer(n.userID, n.tokens.Issue(n.userID, proto.ScopeFile, 0))
	if err := n.sendFrame(offer, to); err != nil {
		n.files.FinishOutbound(out.FileID)
		return "", err
	}
	return out.FileID, nil
}

// SendFileChunks streams every chunk of a previously offered file.
func (n *Node) SendFileChunks(fileID string) error {
	out, ok := n.files.Outbound(fileID)
	if !ok {
		return errors.NewTransferError("send", fmt.Errorf("unknown file %s", fileID))
	}
	tok := n.tokens.Issue(n.userID, proto.ScopeFile, 0)
	for i := 0; i < out.TotalChunks; i++ {
		c, err := out.Chunk(i, n.userID, tok)
		if err != nil {
			return err
		}
		if err := n.sendFrame(c, out.Recipient); err != nil {
			return err
		}
	}
	return nil
}

// AcceptFile starts collecting chunks for an offered transfer.
func (n *Node) AcceptFile(fileID string) error { return n.files.Accept(fileID) }

// RejectFile discards an offered transfer; its chunks are dropped silently.
func (n *Node) RejectFile(fileID string) error { return n.files.Reject(fileID) }

// InviteGame starts a tic-tac-toe match; the inviter keeps symbol.
func (n *Node) InviteGame(to, symbol string) (string, error) {
	if symbol != "X" && symbol != "O" {
		return "", errors.NewGameError("invite", fmt.Errorf("symbol must be X or O, got %q", symbol))
	}
	gameID := fmt.Sprintf("g%s", proto.NewID())
	if _, err := n.games.StartLocal(gameID, to, symbol); err != nil {
		return "", err
	}
	msg := &proto.TTTInvite{
		From: n.userID, To: to, GameID: gameID,
		MessageID: proto.NewID(), Symbol: symbol,
		Timestamp: time.Now().Unix(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeGame, 0),
	}
	if err := n.sendFrame(msg, to); err != nil {
		n.games.Finish(gameID)
		return "", err
	}
	return gameID, nil
}

// CreateGroup seeds a group locally and unicasts the GROUP_CREATE to every
// member.
func (n *Node) CreateGroup(name string, members []string) (string, error) {
	msg := &proto.GroupCreate{
		From:      n.userID,
		GroupID:   fmt.Sprintf("GROUP_%s", proto.NewID()),
		GroupName: name,
		Members:   members,
		Timestamp: time.Now().Unix(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeGroup, 0),
	}
	g, err := n.groups.Create(msg)
	if err != nil {
		return "", err
	}
	n.fanOut(msg, g.ID)
	return g.ID, nil
}

// UpdateGroup applies ADD/REMOVE lists to a group this node created and
// unicasts the update to the resulting membership.
func (n *Node) UpdateGroup(groupID string, add, remove []string) error {
	msg := &proto.GroupUpdate{
		From:    n.userID,
		GroupID: groupID,
		Add:     add, Remove: remove,
		Timestamp: time.Now().Unix(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeGroup, 0),
	}
	if _, err := n.groups.Update(msg); err != nil {
		return err
	}
	n.fanOut(msg, groupID)
	// Removed members hear the update too, so they can forget the group.
	for _, removed := range remove {
		if err := n.sendFrame(msg, removed); err != nil {
			n.log.Debug("group update to removed member failed", "to", removed, "error", err)
		}
	}
	return nil
}

// SendGroupMessage delivers content to every other member of groupID.
func (n *Node) SendGroupMessage(groupID, content string) error {
	if !n.groups.Authorize(groupID, n.userID) {
		return errors.NewGroupError("message", fmt.Errorf("not a member of %s", groupID))
	}
	msg := &proto.GroupMessage{
		From:      n.userID,
		GroupID:   groupID,
		Content:   content,
		Timestamp: time.Now().Unix(),
		Token:     n.tokens.Issue(n.userID, proto.ScopeGroup, 0),
	}
	n.fanOut(msg, groupID)
	return nil
}

// fanOut unicasts msg to every member of groupID except this node.
func (n *Node) fanOut(msg proto.Message, groupID string) {
	targets, err := n.groups.FanOut(groupID, n.userID)
	if err != nil {
		n.log.Debug("fan-out failed", "group_id", groupID, "error", err)
		return
	}
	for _, member := range targets {
		if err := n.sendFrame(msg, member); err != nil {
			n.log.Debug("group send failed", "group_id", groupID, "to", member, "error", err)
		}
	}
}

// PlayMove plays position (0-8) in an active game and delivers the move
// reliably. On delivery failure the move is reverted locally.
func (n *Node) PlayMove(ctx context.Context, gameID string, position int64) error {
	g, ok := n.games.Get(gameID)
	if !ok {
		return errors.NewGameError("move", fmt.Errorf("unknown game %s", gameID))
	}
	opponent := g.Opponent

	mv, res, err := n.games.PlayLocal(gameID, position)
	if err != nil {
		return err
	}
	msg := &proto.TTTMove{
		From: n.userID, To: opponent, GameID: gameID,
		MessageID: proto.NewID(), Position: mv.Position,
		Symbol: mv.Symbol, Turn: mv.Turn,
		Token: n.tokens.Issue(n.userID, proto.ScopeGame, 0),
	}
	if err := n.sendReliable(ctx, msg, msg.MessageID, opponent); err != nil {
		// Undelivered: un-play the move so both boards stay aligned.
		if uerr := n.games.Unplay(gameID, mv); uerr != nil {
			n.log.Warn("move revert failed", "game_id", gameID, "error", uerr)
		}
		return err
	}
	if res != nil {
		n.finishGame(gameID, opponent, res)
	}
	return nil
}
