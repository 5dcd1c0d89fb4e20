package proto

// Message type registry and the authoritative TYPE→scope table.

// Well-known field names.
const (
	FieldType      = "TYPE"
	FieldUserID    = "USER_ID"
	FieldFrom      = "FROM"
	FieldTo        = "TO"
	FieldTimestamp = "TIMESTAMP"
	FieldMessageID = "MESSAGE_ID"
	FieldToken     = "TOKEN"
	FieldContent   = "CONTENT"
	FieldStatus    = "STATUS"
)

// Message types (closed set).
const (
	TypeProfile      = "PROFILE"
	TypePing         = "PING"
	TypePost         = "POST"
	TypeDM           = "DM"
	TypeAck          = "ACK"
	TypeFollow       = "FOLLOW"
	TypeUnfollow     = "UNFOLLOW"
	TypeLike         = "LIKE"
	TypeRevoke       = "REVOKE"
	TypeFileOffer    = "FILE_OFFER"
	TypeFileChunk    = "FILE_CHUNK"
	TypeFileReceived = "FILE_RECEIVED"
	TypeTTTInvite    = "TICTACTOE_INVITE"
	TypeTTTMove      = "TICTACTOE_MOVE"
	TypeTTTResult    = "TICTACTOE_RESULT"
	TypeTTTStateReq  = "TICTACTOE_STATE_REQUEST"
	TypeTTTStateResp = "TICTACTOE_STATE_RESPONSE"
	TypeTTTMoveReq   = "TICTACTOE_MOVE_REQUEST"
	TypeGroupCreate  = "GROUP_CREATE"
	TypeGroupUpdate  = "GROUP_UPDATE"
	TypeGroupMessage = "GROUP_MESSAGE"
)

// Token scopes.
const (
	ScopeBroadcast = "broadcast"
	ScopeChat      = "chat"
	ScopeFile      = "file"
	ScopeGame      = "game"
	ScopeGroup     = "group"
	ScopeFollow    = "follow"
)

// requiredScopes maps each token-bearing message type to the scope its token
// must carry. Types absent from this table (PING, PROFILE, ACK,
// FILE_RECEIVED, and the game resync messages in their request direction)
// carry no token check.
var requiredScopes = map[string]string{
	TypePost:         ScopeBroadcast,
	TypeLike:         ScopeBroadcast,
	TypeDM:           ScopeChat,
	TypeRevoke:       ScopeChat,
	TypeFollow:       ScopeFollow,
	TypeUnfollow:     ScopeFollow,
	TypeFileOffer:    ScopeFile,
	TypeFileChunk:    ScopeFile,
	TypeTTTInvite:    ScopeGame,
	TypeTTTMove:      ScopeGame,
	TypeTTTResult:    ScopeGame,
	TypeGroupCreate:  ScopeGroup,
	TypeGroupUpdate:  ScopeGroup,
	TypeGroupMessage: ScopeGroup,
}

// RequiredScope returns the scope a frame of msgType must carry, and whether
// a token is required at all.
func RequiredScope(msgType string) (string, bool) {
	s, ok := requiredScopes[msgType]
	return s, ok
}

// knownTypes is the closed message type set.
var knownTypes = map[string]struct{}{
	TypeProfile: {}, TypePing: {}, TypePost: {}, TypeDM: {}, TypeAck: {},
	TypeFollow: {}, TypeUnfollow: {}, TypeLike: {}, TypeRevoke: {},
	TypeFileOffer: {}, TypeFileChunk: {}, TypeFileReceived: {},
	TypeTTTInvite: {}, TypeTTTMove: {}, TypeTTTResult: {},
	TypeTTTStateReq: {}, TypeTTTStateResp: {}, TypeTTTMoveReq: {},
	TypeGroupCreate: {}, TypeGroupUpdate: {}, TypeGroupMessage: {},
}

// KnownType reports whether msgType belongs to the protocol's closed set.
func KnownType(msgType string) bool {
	_, ok := knownTypes[msgType]
	return ok
}
