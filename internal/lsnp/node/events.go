package node

import "time"

// EventKind names the categories of UI events the node emits. The CLI (an
// external collaborator) renders them; the node only publishes.
type EventKind string

const (
	EventPeerSeen     EventKind = "peer_seen"
	EventProfile      EventKind = "profile"
	EventPost         EventKind = "post"
	EventDM           EventKind = "dm"
	EventFollow       EventKind = "follow"
	EventUnfollow     EventKind = "unfollow"
	EventLike         EventKind = "like"
	EventFileOffer    EventKind = "file_offer"
	EventFileComplete EventKind = "file_complete"
	EventFileStatus   EventKind = "file_status"
	EventGameInvite   EventKind = "game_invite"
	EventGameMove     EventKind = "game_move"
	EventGameResult   EventKind = "game_result"
	EventGameExpired  EventKind = "game_expired"
	EventGroupCreate  EventKind = "group_create"
	EventGroupUpdate  EventKind = "group_update"
	EventGroupMessage EventKind = "group_message"
	EventDropped      EventKind = "dropped"
)

// Event is one decoded inbound happening, ready for display. Summary is the
// terse human line; Fields carries the full decoded detail for verbose
// rendering.
type Event struct {
	Kind    EventKind
	From    string
	Summary string
	Fields  map[string]string
	Time    time.Time
}

// Sink receives events from the node. Implementations must not block; slow
// consumers should buffer or drop.
type Sink interface {
	Publish(Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// ChanSink buffers events on a channel, dropping when the consumer lags.
type ChanSink struct {
	C chan Event
}

// NewChanSink returns a sink buffering up to n events.
func NewChanSink(n int) *ChanSink {
	return &ChanSink{C: make(chan Event, n)}
}

func (s *ChanSink) Publish(e Event) {
	select {
	case s.C <- e:
	default:
	}
}
