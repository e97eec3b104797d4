// Package codec defines the wire-protocol capability surface the session
// layer depends on, plus minimal HTTP/1.1 and HTTP/2 implementations.
//
// The session core never downcasts a codec to a concrete type. Optional
// behavior (header-indexing configuration, egress settings) is discovered
// through capability interfaces and nil-able accessors, so a codec that does
// not support a feature simply opts out.
package codec

// Protocol identifies the wire protocol a codec speaks.
type Protocol int

const (
	// ProtocolHTTP1_1 is plain-text HTTP/1.x framing.
	ProtocolHTTP1_1 Protocol = iota

	// ProtocolHTTP2 is binary HTTP/2 framing with HPACK header compression.
	ProtocolHTTP2
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP1_1:
		return "http/1.1"
	case ProtocolHTTP2:
		return "h2"
	default:
		return "unknown"
	}
}

// IsHTTP2 reports whether the protocol uses HTTP/2 framing.
func (p Protocol) IsHTTP2() bool {
	return p == ProtocolHTTP2
}

// TransportDirection identifies which side of the connection this codec
// serves.
type TransportDirection int

const (
	// DirectionDownstream is the server-accepting side: the session
	// receives requests and sends responses.
	DirectionDownstream TransportDirection = iota

	// DirectionUpstream is the client-initiated side: the session sends
	// requests and receives responses.
	DirectionUpstream
)

func (d TransportDirection) String() string {
	switch d {
	case DirectionDownstream:
		return "downstream"
	case DirectionUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// SettingID identifies a protocol settings parameter advertised to the peer.
type SettingID uint16

const (
	// SettingHeaderTableSize bounds the peer-visible HPACK dynamic table.
	SettingHeaderTableSize SettingID = 0x1

	// SettingMaxConcurrentStreams bounds concurrently open streams.
	SettingMaxConcurrentStreams SettingID = 0x3

	// SettingInitialWindowSize is the per-stream flow-control window.
	SettingInitialWindowSize SettingID = 0x4

	// SettingEnableExHeaders advertises support for extended header frames
	// carried on a controlling stream.
	SettingEnableExHeaders SettingID = 0xfff2
)

// Settings is the mutable set of egress settings a codec will advertise.
// Only codecs for protocols with a settings exchange expose one.
type Settings struct {
	values map[SettingID]uint32
}

// NewSettings returns an empty settings set.
func NewSettings() *Settings {
	return &Settings{values: make(map[SettingID]uint32)}
}

// Set stores a setting value, replacing any previous value.
func (s *Settings) Set(id SettingID, value uint32) {
	s.values[id] = value
}

// Get returns the value for id and whether it has been set.
func (s *Settings) Get(id SettingID) (uint32, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Len returns the number of settings that have been set.
func (s *Settings) Len() int {
	return len(s.values)
}

// Codec is the session-facing view of a wire-format codec.
//
// Frame-level encode/decode is owned by concrete codec implementations and
// their callers (the connection read/write loops); the session core only
// needs protocol identity, transport direction, and the egress settings
// handle.
type Codec interface {
	// Protocol returns the wire protocol this codec speaks.
	Protocol() Protocol

	// TransportDirection returns which side of the connection this codec
	// serves. Error dispatch policy depends on it: upstream sessions
	// cannot recover from parse errors.
	TransportDirection() TransportDirection

	// EgressSettings returns the mutable egress settings, or nil when the
	// protocol has no settings exchange (HTTP/1.x).
	EgressSettings() *Settings
}

// HeaderIndexingConfigurer is the capability interface for codecs whose
// header compression supports a per-session indexing policy. Callers must
// discover it with a type assertion; a codec that does not implement it has
// no indexing-strategy concept for its current protocol.
type HeaderIndexingConfigurer interface {
	// SetHeaderIndexingStrategy installs the policy consulted for each
	// outgoing header field. A nil strategy restores the default.
	SetHeaderIndexingStrategy(strategy HeaderIndexingStrategy)
}
