package proto

// Typed message variants
// ----------------------
// The codec yields a generic Frame; Parse converts it into the closed set of
// typed variants below so the dispatcher and handlers work with fields, not
// raw maps. Each variant validates its required fields on parse and knows
// how to rebuild its Frame for the outbound path.

import (
	"fmt"
	"strings"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
)

// Type-specific field names.
const (
	FieldDisplayName    = "DISPLAY_NAME"
	FieldPort           = "PORT"
	FieldAvatarType     = "AVATAR_TYPE"
	FieldAvatarEncoding = "AVATAR_ENCODING"
	FieldAvatarData     = "AVATAR_DATA"
	FieldTTL            = "TTL"
	FieldAction         = "ACTION"
	FieldPostTimestamp  = "POST_TIMESTAMP"
	FieldFilename       = "FILENAME"
	FieldFilesize       = "FILESIZE"
	FieldFiletype       = "FILETYPE"
	FieldFileID         = "FILEID"
	FieldDescription    = "DESCRIPTION"
	FieldChunkIndex     = "CHUNK_INDEX"
	FieldTotalChunks    = "TOTAL_CHUNKS"
	FieldChunkSize      = "CHUNK_SIZE"
	FieldData           = "DATA"
	FieldGameID         = "GAMEID"
	FieldSymbol         = "SYMBOL"
	FieldPosition       = "POSITION"
	FieldTurn           = "TURN"
	FieldResult         = "RESULT"
	FieldWinningLine    = "WINNING_LINE"
	FieldBoard          = "BOARD"
	FieldFromTurn       = "FROM_TURN"
	FieldToTurn         = "TO_TURN"
	FieldGroupID        = "GROUP_ID"
	FieldGroupName      = "GROUP_NAME"
	FieldMembers        = "MEMBERS"
	FieldAdd            = "ADD"
	FieldRemove         = "REMOVE"
)

// LIKE actions.
const (
	ActionLike   = "LIKE"
	ActionUnlike = "UNLIKE"
)

// ACK / FILE_RECEIVED statuses.
const (
	StatusReceived = "RECEIVED"
	StatusComplete = "COMPLETE"
	StatusError    = "ERROR"
)

// Message is implemented by every typed variant.
type Message interface {
	MessageType() string
	ToFrame() *Frame
}

// parseErr builds the uniform parse failure for a message type.
func parseErr(msgType, detail string) error {
	return errors.NewFrameError("parse."+msgType, fmt.Errorf("%s", detail))
}

func require(f *Frame, msgType string, fields ...string) error {
	for _, k := range fields {
		if f.Get(k) == "" {
			return parseErr(msgType, "missing "+k)
		}
	}
	return nil
}

// splitList splits a comma-separated field into trimmed non-empty items.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string { return strings.Join(items, ",") }

// Profile announces identity, presence and optional avatar.
type Profile struct {
	UserID         string
	DisplayName    string
	Status         string
	Port           int64
	AvatarType     string
	AvatarEncoding string
	AvatarData     string
}

func (m *Profile) MessageType() string { return TypeProfile }

func (m *Profile) ToFrame() *Frame {
	f := NewFrame(TypeProfile).
		Set(FieldUserID, m.UserID).
		Set(FieldDisplayName, m.DisplayName).
		Set(FieldStatus, m.Status).
		SetInt(FieldPort, m.Port)
	if m.AvatarData != "" {
		f.Set(FieldAvatarType, m.AvatarType).
			Set(FieldAvatarEncoding, "base64").
			Set(FieldAvatarData, m.AvatarData)
	}
	return f
}

func parseProfile(f *Frame) (*Profile, error) {
	if err := require(f, TypeProfile, FieldUserID); err != nil {
		return nil, err
	}
	m := &Profile{
		UserID:         f.Get(FieldUserID),
		DisplayName:    f.Get(FieldDisplayName),
		Status:         f.Get(FieldStatus),
		AvatarType:     f.Get(FieldAvatarType),
		AvatarEncoding: f.Get(FieldAvatarEncoding),
		AvatarData:     f.Get(FieldAvatarData),
	}
	if f.Has(FieldPort) {
		if p, err := f.Int(FieldPort); err == nil {
			m.Port = p
		}
	}
	return m, nil
}

// Ping is the periodic presence probe.
type Ping struct {
	UserID string
}

func (m *Ping) MessageType() string { return TypePing }
func (m *Ping) ToFrame() *Frame     { return NewFrame(TypePing).Set(FieldUserID, m.UserID) }

func parsePing(f *Frame) (*Ping, error) {
	if err := require(f, TypePing, FieldUserID); err != nil {
		return nil, err
	}
	return &Ping{UserID: f.Get(FieldUserID)}, nil
}

// Post is a broadcast status update.
type Post struct {
	UserID    string
	Content   string
	TTL       int64
	Timestamp int64
	MessageID string
	Token     string
}

func (m *Post) MessageType() string { return TypePost }

func (m *Post) ToFrame() *Frame {
	return NewFrame(TypePost).
		Set(FieldUserID, m.UserID).
		Set(FieldContent, m.Content).
		SetInt(FieldTTL, m.TTL).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldMessageID, m.MessageID).
		Set(FieldToken, m.Token)
}

func parsePost(f *Frame) (*Post, error) {
	if err := require(f, TypePost, FieldUserID, FieldContent); err != nil {
		return nil, err
	}
	m := &Post{
		UserID:    f.Get(FieldUserID),
		Content:   f.Get(FieldContent),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	m.TTL, _ = f.Int(FieldTTL)
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// DM is a directed chat message (reliable unicast).
type DM struct {
	From      string
	To        string
	Content   string
	Timestamp int64
	MessageID string
	Token     string
}

func (m *DM) MessageType() string { return TypeDM }

func (m *DM) ToFrame() *Frame {
	return NewFrame(TypeDM).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldContent, m.Content).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldMessageID, m.MessageID).
		Set(FieldToken, m.Token)
}

func parseDM(f *Frame) (*DM, error) {
	if err := require(f, TypeDM, FieldFrom, FieldContent); err != nil {
		return nil, err
	}
	m := &DM{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		Content:   f.Get(FieldContent),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// Ack confirms receipt of a reliable unicast frame.
type Ack struct {
	MessageID string
	Status    string
}

func (m *Ack) MessageType() string { return TypeAck }

func (m *Ack) ToFrame() *Frame {
	return NewFrame(TypeAck).
		Set(FieldMessageID, m.MessageID).
		Set(FieldStatus, m.Status)
}

func parseAck(f *Frame) (*Ack, error) {
	if err := require(f, TypeAck, FieldMessageID); err != nil {
		return nil, err
	}
	st := f.Get(FieldStatus)
	if st == "" {
		st = StatusReceived
	}
	return &Ack{MessageID: f.Get(FieldMessageID), Status: st}, nil
}

// Follow / Unfollow are social graph updates.
type Follow struct {
	From      string
	To        string
	MessageID string
	Timestamp int64
	Token     string
}

func (m *Follow) MessageType() string { return TypeFollow }

func (m *Follow) ToFrame() *Frame {
	return NewFrame(TypeFollow).
		Set(FieldMessageID, m.MessageID).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

type Unfollow struct {
	From      string
	To        string
	MessageID string
	Timestamp int64
	Token     string
}

func (m *Unfollow) MessageType() string { return TypeUnfollow }

func (m *Unfollow) ToFrame() *Frame {
	return NewFrame(TypeUnfollow).
		Set(FieldMessageID, m.MessageID).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseFollow(f *Frame) (*Follow, error) {
	if err := require(f, TypeFollow, FieldFrom); err != nil {
		return nil, err
	}
	m := &Follow{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

func parseUnfollow(f *Frame) (*Unfollow, error) {
	if err := require(f, TypeUnfollow, FieldFrom); err != nil {
		return nil, err
	}
	m := &Unfollow{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// Like reacts to a broadcast post, identified by its timestamp.
type Like struct {
	From          string
	To            string
	Action        string // LIKE or UNLIKE
	PostTimestamp int64
	Timestamp     int64
	Token         string
}

func (m *Like) MessageType() string { return TypeLike }

func (m *Like) ToFrame() *Frame {
	return NewFrame(TypeLike).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldAction, m.Action).
		SetInt(FieldPostTimestamp, m.PostTimestamp).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseLike(f *Frame) (*Like, error) {
	if err := require(f, TypeLike, FieldFrom, FieldPostTimestamp); err != nil {
		return nil, err
	}
	m := &Like{
		From:   f.Get(FieldFrom),
		To:     f.Get(FieldTo),
		Action: f.Get(FieldAction),
		Token:  f.Get(FieldToken),
	}
	if m.Action == "" {
		m.Action = ActionLike
	}
	var err error
	if m.PostTimestamp, err = f.Int(FieldPostTimestamp); err != nil {
		return nil, parseErr(TypeLike, "bad POST_TIMESTAMP")
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// Revoke withdraws a previously issued token. Processed before any token
// check on the inbound path.
type Revoke struct {
	From  string
	Token string
}

func (m *Revoke) MessageType() string { return TypeRevoke }

func (m *Revoke) ToFrame() *Frame {
	return NewFrame(TypeRevoke).
		Set(FieldFrom, m.From).
		Set(FieldToken, m.Token)
}

func parseRevoke(f *Frame) (*Revoke, error) {
	if err := require(f, TypeRevoke, FieldToken); err != nil {
		return nil, err
	}
	return &Revoke{From: f.Sender(), Token: f.Get(FieldToken)}, nil
}

// FileOffer opens a transfer.
type FileOffer struct {
	From        string
	To          string
	Filename    string
	Filesize    int64
	Filetype    string
	FileID      string
	Description string
	Timestamp   int64
	Token       string
}

func (m *FileOffer) MessageType() string { return TypeFileOffer }

func (m *FileOffer) ToFrame() *Frame {
	return NewFrame(TypeFileOffer).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldFilename, m.Filename).
		SetInt(FieldFilesize, m.Filesize).
		Set(FieldFiletype, m.Filetype).
		Set(FieldFileID, m.FileID).
		Set(FieldDescription, m.Description).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseFileOffer(f *Frame) (*FileOffer, error) {
	if err := require(f, TypeFileOffer, FieldFrom, FieldFileID, FieldFilename); err != nil {
		return nil, err
	}
	m := &FileOffer{
		From:        f.Get(FieldFrom),
		To:          f.Get(FieldTo),
		Filename:    f.Get(FieldFilename),
		Filetype:    f.Get(FieldFiletype),
		FileID:      f.Get(FieldFileID),
		Description: f.Get(FieldDescription),
		Token:       f.Get(FieldToken),
	}
	m.Filesize, _ = f.Int(FieldFilesize)
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// FileChunk carries one base64 slice of an accepted transfer.
type FileChunk struct {
	From        string
	To          string
	FileID      string
	ChunkIndex  int64
	TotalChunks int64
	ChunkSize   int64
	Token       string
	Data        string // base64
}

func (m *FileChunk) MessageType() string { return TypeFileChunk }

func (m *FileChunk) ToFrame() *Frame {
	return NewFrame(TypeFileChunk).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldFileID, m.FileID).
		SetInt(FieldChunkIndex, m.ChunkIndex).
		SetInt(FieldTotalChunks, m.TotalChunks).
		SetInt(FieldChunkSize, m.ChunkSize).
		Set(FieldToken, m.Token).
		Set(FieldData, m.Data)
}

func parseFileChunk(f *Frame) (*FileChunk, error) {
	if err := require(f, TypeFileChunk, FieldFrom, FieldFileID, FieldData); err != nil {
		return nil, err
	}
	m := &FileChunk{
		From:   f.Get(FieldFrom),
		To:     f.Get(FieldTo),
		FileID: f.Get(FieldFileID),
		Token:  f.Get(FieldToken),
		Data:   f.Get(FieldData),
	}
	var err error
	if m.ChunkIndex, err = f.Int(FieldChunkIndex); err != nil {
		return nil, parseErr(TypeFileChunk, "bad CHUNK_INDEX")
	}
	if m.TotalChunks, err = f.Int(FieldTotalChunks); err != nil {
		return nil, parseErr(TypeFileChunk, "bad TOTAL_CHUNKS")
	}
	m.ChunkSize, _ = f.Int(FieldChunkSize)
	return m, nil
}

// FileReceived closes a transfer from the receiving side.
type FileReceived struct {
	From      string
	To        string
	FileID    string
	Status    string // COMPLETE or ERROR
	Timestamp int64
}

func (m *FileReceived) MessageType() string { return TypeFileReceived }

func (m *FileReceived) ToFrame() *Frame {
	return NewFrame(TypeFileReceived).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldFileID, m.FileID).
		Set(FieldStatus, m.Status).
		SetInt(FieldTimestamp, m.Timestamp)
}

func parseFileReceived(f *Frame) (*FileReceived, error) {
	if err := require(f, TypeFileReceived, FieldFrom, FieldFileID); err != nil {
		return nil, err
	}
	m := &FileReceived{
		From:   f.Get(FieldFrom),
		To:     f.Get(FieldTo),
		FileID: f.Get(FieldFileID),
		Status: f.Get(FieldStatus),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// TTTInvite starts a game; the inviter picks their symbol.
type TTTInvite struct {
	From      string
	To        string
	GameID    string
	MessageID string
	Symbol    string
	Timestamp int64
	Token     string
}

func (m *TTTInvite) MessageType() string { return TypeTTTInvite }

func (m *TTTInvite) ToFrame() *Frame {
	return NewFrame(TypeTTTInvite).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		Set(FieldMessageID, m.MessageID).
		Set(FieldSymbol, m.Symbol).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseTTTInvite(f *Frame) (*TTTInvite, error) {
	if err := require(f, TypeTTTInvite, FieldFrom, FieldGameID, FieldSymbol); err != nil {
		return nil, err
	}
	m := &TTTInvite{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		GameID:    f.Get(FieldGameID),
		MessageID: f.Get(FieldMessageID),
		Symbol:    f.Get(FieldSymbol),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// TTTMove plays one cell at one turn (reliable unicast).
type TTTMove struct {
	From      string
	To        string
	GameID    string
	MessageID string
	Position  int64
	Symbol    string
	Turn      int64
	Token     string
}

func (m *TTTMove) MessageType() string { return TypeTTTMove }

func (m *TTTMove) ToFrame() *Frame {
	return NewFrame(TypeTTTMove).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		Set(FieldMessageID, m.MessageID).
		SetInt(FieldPosition, m.Position).
		Set(FieldSymbol, m.Symbol).
		SetInt(FieldTurn, m.Turn).
		Set(FieldToken, m.Token)
}

func parseTTTMove(f *Frame) (*TTTMove, error) {
	if err := require(f, TypeTTTMove, FieldFrom, FieldGameID, FieldSymbol); err != nil {
		return nil, err
	}
	m := &TTTMove{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		GameID:    f.Get(FieldGameID),
		MessageID: f.Get(FieldMessageID),
		Symbol:    f.Get(FieldSymbol),
		Token:     f.Get(FieldToken),
	}
	var err error
	if m.Position, err = f.Int(FieldPosition); err != nil {
		return nil, parseErr(TypeTTTMove, "bad POSITION")
	}
	if m.Turn, err = f.Int(FieldTurn); err != nil {
		return nil, parseErr(TypeTTTMove, "bad TURN")
	}
	return m, nil
}

// TTTResult announces the game outcome (reliable unicast).
type TTTResult struct {
	From        string
	To          string
	GameID      string
	MessageID   string
	Result      string // X, O or DRAW
	Symbol      string
	WinningLine string // comma triple, empty for draw
	Timestamp   int64
	Token       string
}

func (m *TTTResult) MessageType() string { return TypeTTTResult }

func (m *TTTResult) ToFrame() *Frame {
	return NewFrame(TypeTTTResult).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		Set(FieldMessageID, m.MessageID).
		Set(FieldResult, m.Result).
		Set(FieldSymbol, m.Symbol).
		Set(FieldWinningLine, m.WinningLine).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseTTTResult(f *Frame) (*TTTResult, error) {
	if err := require(f, TypeTTTResult, FieldFrom, FieldGameID, FieldResult); err != nil {
		return nil, err
	}
	m := &TTTResult{
		From:        f.Get(FieldFrom),
		To:          f.Get(FieldTo),
		GameID:      f.Get(FieldGameID),
		MessageID:   f.Get(FieldMessageID),
		Result:      f.Get(FieldResult),
		Symbol:      f.Get(FieldSymbol),
		WinningLine: f.Get(FieldWinningLine),
		Token:       f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// TTTStateRequest asks the opponent for the full game state (unknown game).
type TTTStateRequest struct {
	From      string
	To        string
	GameID    string
	MessageID string
	Timestamp int64
	Token     string
}

func (m *TTTStateRequest) MessageType() string { return TypeTTTStateReq }

func (m *TTTStateRequest) ToFrame() *Frame {
	return NewFrame(TypeTTTStateReq).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		Set(FieldMessageID, m.MessageID).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseTTTStateRequest(f *Frame) (*TTTStateRequest, error) {
	if err := require(f, TypeTTTStateReq, FieldFrom, FieldGameID); err != nil {
		return nil, err
	}
	m := &TTTStateRequest{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		GameID:    f.Get(FieldGameID),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// TTTStateResponse carries the authoritative board and turn counter.
type TTTStateResponse struct {
	From      string
	To        string
	GameID    string
	Board     string // nine comma-separated cells, empty string for vacant
	Turn      int64
	MessageID string
	Timestamp int64
	Token     string
}

func (m *TTTStateResponse) MessageType() string { return TypeTTTStateResp }

func (m *TTTStateResponse) ToFrame() *Frame {
	return NewFrame(TypeTTTStateResp).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		Set(FieldBoard, m.Board).
		SetInt(FieldTurn, m.Turn).
		Set(FieldMessageID, m.MessageID).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseTTTStateResponse(f *Frame) (*TTTStateResponse, error) {
	if err := require(f, TypeTTTStateResp, FieldFrom, FieldGameID); err != nil {
		return nil, err
	}
	m := &TTTStateResponse{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		GameID:    f.Get(FieldGameID),
		Board:     f.Get(FieldBoard),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	var err error
	if m.Turn, err = f.Int(FieldTurn); err != nil {
		return nil, parseErr(TypeTTTStateResp, "bad TURN")
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// TTTMoveRequest asks for retransmission of a turn range [FromTurn, ToTurn].
type TTTMoveRequest struct {
	From      string
	To        string
	GameID    string
	FromTurn  int64
	ToTurn    int64
	MessageID string
	Timestamp int64
	Token     string
}

func (m *TTTMoveRequest) MessageType() string { return TypeTTTMoveReq }

func (m *TTTMoveRequest) ToFrame() *Frame {
	return NewFrame(TypeTTTMoveReq).
		Set(FieldFrom, m.From).
		Set(FieldTo, m.To).
		Set(FieldGameID, m.GameID).
		SetInt(FieldFromTurn, m.FromTurn).
		SetInt(FieldToTurn, m.ToTurn).
		Set(FieldMessageID, m.MessageID).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseTTTMoveRequest(f *Frame) (*TTTMoveRequest, error) {
	if err := require(f, TypeTTTMoveReq, FieldFrom, FieldGameID); err != nil {
		return nil, err
	}
	m := &TTTMoveRequest{
		From:      f.Get(FieldFrom),
		To:        f.Get(FieldTo),
		GameID:    f.Get(FieldGameID),
		MessageID: f.Get(FieldMessageID),
		Token:     f.Get(FieldToken),
	}
	var err error
	if m.FromTurn, err = f.Int(FieldFromTurn); err != nil {
		return nil, parseErr(TypeTTTMoveReq, "bad FROM_TURN")
	}
	if m.ToTurn, err = f.Int(FieldToTurn); err != nil {
		return nil, parseErr(TypeTTTMoveReq, "bad TO_TURN")
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// GroupCreate seeds a group at every listed member.
type GroupCreate struct {
	From      string
	GroupID   string
	GroupName string
	Members   []string
	Timestamp int64
	Token     string
}

func (m *GroupCreate) MessageType() string { return TypeGroupCreate }

func (m *GroupCreate) ToFrame() *Frame {
	return NewFrame(TypeGroupCreate).
		Set(FieldFrom, m.From).
		Set(FieldGroupID, m.GroupID).
		Set(FieldGroupName, m.GroupName).
		Set(FieldMembers, joinList(m.Members)).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseGroupCreate(f *Frame) (*GroupCreate, error) {
	if err := require(f, TypeGroupCreate, FieldFrom, FieldGroupID); err != nil {
		return nil, err
	}
	m := &GroupCreate{
		From:      f.Get(FieldFrom),
		GroupID:   f.Get(FieldGroupID),
		GroupName: f.Get(FieldGroupName),
		Members:   splitList(f.Get(FieldMembers)),
		Token:     f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// GroupUpdate changes membership; only honoured from the creator.
type GroupUpdate struct {
	From      string
	GroupID   string
	Add       []string
	Remove    []string
	Timestamp int64
	Token     string
}

func (m *GroupUpdate) MessageType() string { return TypeGroupUpdate }

func (m *GroupUpdate) ToFrame() *Frame {
	return NewFrame(TypeGroupUpdate).
		Set(FieldFrom, m.From).
		Set(FieldGroupID, m.GroupID).
		Set(FieldAdd, joinList(m.Add)).
		Set(FieldRemove, joinList(m.Remove)).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseGroupUpdate(f *Frame) (*GroupUpdate, error) {
	if err := require(f, TypeGroupUpdate, FieldFrom, FieldGroupID); err != nil {
		return nil, err
	}
	m := &GroupUpdate{
		From:    f.Get(FieldFrom),
		GroupID: f.Get(FieldGroupID),
		Add:     splitList(f.Get(FieldAdd)),
		Remove:  splitList(f.Get(FieldRemove)),
		Token:   f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// GroupMessage fans a member's message out to the group.
type GroupMessage struct {
	From      string
	GroupID   string
	Content   string
	Timestamp int64
	Token     string
}

func (m *GroupMessage) MessageType() string { return TypeGroupMessage }

func (m *GroupMessage) ToFrame() *Frame {
	return NewFrame(TypeGroupMessage).
		Set(FieldFrom, m.From).
		Set(FieldGroupID, m.GroupID).
		Set(FieldContent, m.Content).
		SetInt(FieldTimestamp, m.Timestamp).
		Set(FieldToken, m.Token)
}

func parseGroupMessage(f *Frame) (*GroupMessage, error) {
	if err := require(f, TypeGroupMessage, FieldFrom, FieldGroupID, FieldContent); err != nil {
		return nil, err
	}
	m := &GroupMessage{
		From:    f.Get(FieldFrom),
		GroupID: f.Get(FieldGroupID),
		Content: f.Get(FieldContent),
		Token:   f.Get(FieldToken),
	}
	m.Timestamp, _ = f.Int(FieldTimestamp)
	return m, nil
}

// Parse converts a decoded Frame into its typed variant. Unknown TYPEs are a
// frame error; the dispatcher logs and drops them.
func Parse(f *Frame) (Message, error) {
	if f == nil {
		return nil, errors.NewFrameError("parse", fmt.Errorf("nil frame"))
	}
	switch f.Type() {
	case TypeProfile:
		return parseProfile(f)
	case TypePing:
		return parsePing(f)
	case TypePost:
		return parsePost(f)
	case TypeDM:
		return parseDM(f)
	case TypeAck:
		return parseAck(f)
	case TypeFollow:
		return parseFollow(f)
	case TypeUnfollow:
		return parseUnfollow(f)
	case TypeLike:
		return parseLike(f)
	case TypeRevoke:
		return parseRevoke(f)
	case TypeFileOffer:
		return parseFileOffer(f)
	case TypeFileChunk:
		return parseFileChunk(f)
	case TypeFileReceived:
		return parseFileReceived(f)
	case TypeTTTInvite:
		return parseTTTInvite(f)
	case TypeTTTMove:
		return parseTTTMove(f)
	case TypeTTTResult:
		return parseTTTResult(f)
	case TypeTTTStateReq:
		return parseTTTStateRequest(f)
	case TypeTTTStateResp:
		return parseTTTStateResponse(f)
	case TypeTTTMoveReq:
		return parseTTTMoveRequest(f)
	case TypeGroupCreate:
		return parseGroupCreate(f)
	case TypeGroupUpdate:
		return parseGroupUpdate(f)
	case TypeGroupMessage:
		return parseGroupMessage(f)
	}
	return nil, errors.NewFrameError("parse", fmt.Errorf("unknown TYPE %q", f.Type()))
}
