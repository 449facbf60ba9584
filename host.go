package policy

import "context"

// EndpointKind distinguishes playback sinks from capture sources when the
// engine asks the host to enumerate endpoints or route a stream.
type EndpointKind int

const (
	// EndpointPlayback identifies sinks.
	EndpointPlayback EndpointKind = iota
	// EndpointCapture identifies sources.
	EndpointCapture
)

func (k EndpointKind) String() string {
	if k == EndpointCapture {
		return "capture"
	}
	return "playback"
}

// PropertyList is a read-only key/value lookup attached by the host to
// streams, endpoints and cards. Missing and empty-string values are both
// treated as absent by callers in this package.
type PropertyList interface {
	Get(key string) (string, bool)
}

// Client describes the process that owns a stream.
type Client interface {
	PID() int
	Name() string
	// UID returns the client's user id, or -1 if unknown.
	UID() int64
	Exe() string
	Arg0() string
}

// Stream is a sink-input (playback) or source-output (capture) belonging
// to a client.
type Stream interface {
	Index() uint32
	// Client returns the owning client, or ok=false for a clientless stream.
	Client() (Client, bool)
	Properties() PropertyList
}

// Endpoint is a playback sink or capture source exposed by the host.
type Endpoint interface {
	Name() string
	Index() uint32
	Properties() PropertyList
}

// Card is a sound card exposed by the host, with a selectable set of
// profiles.
type Card interface {
	Name() string
	Properties() PropertyList
	Profiles() []string
}

// HostAdapter is the narrow abstraction the engine uses to act on the
// audio server. The core never talks to the host directly; every bulk
// action and every default-endpoint query goes through this interface,
// so tests can substitute a fake without spinning up real audio I/O.
type HostAdapter interface {
	MoveStream(ctx context.Context, stream Stream, endpoint Endpoint) error
	CorkStream(ctx context.Context, stream Stream, corked bool) error
	SetStreamVolumeLimit(ctx context.Context, stream Stream, level uint32) error

	// DefaultPlaybackEndpoint returns the host's current default sink, if any.
	DefaultPlaybackEndpoint(ctx context.Context) (Endpoint, bool)

	// Endpoints enumerates live endpoints of the given kind.
	Endpoints(ctx context.Context, kind EndpointKind) []Endpoint
}
