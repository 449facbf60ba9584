package policy

import (
	"context"
	"fmt"
)

// fakeClient, fakeStream, fakeEndpoint, fakeCard and fakeHost are minimal
// host-interface doubles shared by this package's internal tests. They
// live alongside fakeProps (streamrule_test.go) rather than importing
// internal/fake, since that package imports policy and an internal test
// file importing it back would be a cycle.

type fakeClient struct {
	pid  int
	name string
	uid  int64
	exe  string
	arg0 string
}

func (c fakeClient) PID() int     { return c.pid }
func (c fakeClient) Name() string { return c.name }
func (c fakeClient) UID() int64   { return c.uid }
func (c fakeClient) Exe() string  { return c.exe }
func (c fakeClient) Arg0() string { return c.arg0 }

type fakeStream struct {
	index  uint32
	client *fakeClient
	props  fakeProps
}

func (s fakeStream) Index() uint32 { return s.index }
func (s fakeStream) Client() (Client, bool) {
	if s.client == nil {
		return nil, false
	}
	return *s.client, true
}
func (s fakeStream) Properties() PropertyList {
	if s.props == nil {
		return nil
	}
	return s.props
}

type fakeEndpoint struct {
	name  string
	index uint32
	props fakeProps
}

func (e fakeEndpoint) Name() string  { return e.name }
func (e fakeEndpoint) Index() uint32 { return e.index }
func (e fakeEndpoint) Properties() PropertyList {
	if e.props == nil {
		return nil
	}
	return e.props
}

type fakeCard struct {
	name     string
	props    fakeProps
	profiles []string
}

func (c fakeCard) Name() string { return c.name }
func (c fakeCard) Properties() PropertyList {
	if c.props == nil {
		return nil
	}
	return c.props
}
func (c fakeCard) Profiles() []string { return c.profiles }

type hostCall struct {
	primitive string
	index     uint32
	endpoint  string
	corked    bool
	limit     uint32
}

// fakeHost is a policy.HostAdapter double that records every call and can
// be scripted to fail specific stream indices on a per-primitive basis.
type fakeHost struct {
	calls   []hostCall
	sinks   []fakeEndpoint
	sources []fakeEndpoint
	def     *fakeEndpoint

	failMove  map[uint32]bool
	failCork  map[uint32]bool
	failLimit map[uint32]bool
}

func (h *fakeHost) MoveStream(_ context.Context, stream Stream, endpoint Endpoint) error {
	h.calls = append(h.calls, hostCall{primitive: "move", index: stream.Index(), endpoint: endpoint.Name()})
	if h.failMove != nil && h.failMove[stream.Index()] {
		return fmt.Errorf("fake: move failed for stream %d", stream.Index())
	}
	return nil
}

func (h *fakeHost) CorkStream(_ context.Context, stream Stream, corked bool) error {
	h.calls = append(h.calls, hostCall{primitive: "cork", index: stream.Index(), corked: corked})
	if h.failCork != nil && h.failCork[stream.Index()] {
		return fmt.Errorf("fake: cork failed for stream %d", stream.Index())
	}
	return nil
}

func (h *fakeHost) SetStreamVolumeLimit(_ context.Context, stream Stream, level uint32) error {
	h.calls = append(h.calls, hostCall{primitive: "volume_limit", index: stream.Index(), limit: level})
	if h.failLimit != nil && h.failLimit[stream.Index()] {
		return fmt.Errorf("fake: volume limit failed for stream %d", stream.Index())
	}
	return nil
}

func (h *fakeHost) DefaultPlaybackEndpoint(_ context.Context) (Endpoint, bool) {
	if h.def == nil {
		return nil, false
	}
	return *h.def, true
}

func (h *fakeHost) Endpoints(_ context.Context, kind EndpointKind) []Endpoint {
	src := h.sinks
	if kind == EndpointCapture {
		src = h.sources
	}
	out := make([]Endpoint, len(src))
	for i, e := range src {
		out[i] = e
	}
	return out
}
