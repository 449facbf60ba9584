// Package fake provides lightweight test doubles for the host-facing
// interfaces in package policy: a map-backed property list, simple
// client/stream/endpoint/card values, and a host adapter that records
// every call it receives. Used by cmd/policyctl for dry-running a rule set
// against a synthetic fixture; policy's own tests use their own doubles.
package fake

import (
	"context"
	"fmt"

	policy "github.com/community-ssu/pulseaudio-policy-enforcement"
)

// Props is a map-backed policy.PropertyList. Missing and empty-string
// values are both treated as absent by the caller, so Props doesn't need
// to distinguish them itself.
type Props map[string]string

func (p Props) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Client is a simple policy.Client. UIDValue should be set to -1 to
// represent an unknown uid.
type Client struct {
	PIDValue  int
	NameValue string
	UIDValue  int64
	ExeValue  string
	Arg0Value string
}

func (c Client) PID() int     { return c.PIDValue }
func (c Client) Name() string { return c.NameValue }
func (c Client) UID() int64   { return c.UIDValue }
func (c Client) Exe() string  { return c.ExeValue }
func (c Client) Arg0() string { return c.Arg0Value }

// Stream is a simple policy.Stream. ClientValue is nil for a clientless
// stream.
type Stream struct {
	IndexValue      uint32
	ClientValue     *Client
	PropertiesValue Props
}

func (s Stream) Index() uint32 { return s.IndexValue }

func (s Stream) Client() (policy.Client, bool) {
	if s.ClientValue == nil {
		return nil, false
	}
	return *s.ClientValue, true
}

func (s Stream) Properties() policy.PropertyList { return s.PropertiesValue }

// Endpoint is a simple policy.Endpoint.
type Endpoint struct {
	NameValue       string
	IndexValue      uint32
	PropertiesValue Props
}

func (e Endpoint) Name() string                    { return e.NameValue }
func (e Endpoint) Index() uint32                    { return e.IndexValue }
func (e Endpoint) Properties() policy.PropertyList { return e.PropertiesValue }

// Card is a simple policy.Card.
type Card struct {
	NameValue       string
	PropertiesValue Props
	ProfilesValue   []string
}

func (c Card) Name() string                    { return c.NameValue }
func (c Card) Properties() policy.PropertyList { return c.PropertiesValue }
func (c Card) Profiles() []string              { return c.ProfilesValue }

// HostCall records one call made to Host, for assertions in tests.
type HostCall struct {
	Primitive    string
	StreamIndex  uint32
	EndpointName string
	Corked       bool
	VolumeLimit  uint32
}

// Host is a policy.HostAdapter that records every call and lets tests
// script which stream indices should fail which primitive.
type Host struct {
	Calls    []HostCall
	Sinks    []Endpoint // playback endpoints
	Sources  []Endpoint // capture endpoints
	Default  *Endpoint

	FailMoveIndices  map[uint32]bool
	FailCorkIndices  map[uint32]bool
	FailLimitIndices map[uint32]bool
}

func (h *Host) MoveStream(_ context.Context, stream policy.Stream, endpoint policy.Endpoint) error {
	h.Calls = append(h.Calls, HostCall{Primitive: "move", StreamIndex: stream.Index(), EndpointName: endpoint.Name()})
	if h.FailMoveIndices != nil && h.FailMoveIndices[stream.Index()] {
		return fmt.Errorf("fake: move failed for stream %d", stream.Index())
	}
	return nil
}

func (h *Host) CorkStream(_ context.Context, stream policy.Stream, corked bool) error {
	h.Calls = append(h.Calls, HostCall{Primitive: "cork", StreamIndex: stream.Index(), Corked: corked})
	if h.FailCorkIndices != nil && h.FailCorkIndices[stream.Index()] {
		return fmt.Errorf("fake: cork failed for stream %d", stream.Index())
	}
	return nil
}

func (h *Host) SetStreamVolumeLimit(_ context.Context, stream policy.Stream, level uint32) error {
	h.Calls = append(h.Calls, HostCall{Primitive: "volume_limit", StreamIndex: stream.Index(), VolumeLimit: level})
	if h.FailLimitIndices != nil && h.FailLimitIndices[stream.Index()] {
		return fmt.Errorf("fake: volume limit failed for stream %d", stream.Index())
	}
	return nil
}

func (h *Host) DefaultPlaybackEndpoint(_ context.Context) (policy.Endpoint, bool) {
	if h.Default == nil {
		return nil, false
	}
	return *h.Default, true
}

func (h *Host) Endpoints(_ context.Context, kind policy.EndpointKind) []policy.Endpoint {
	src := h.Sinks
	if kind == policy.EndpointCapture {
		src = h.Sources
	}
	out := make([]policy.Endpoint, len(src))
	for i, e := range src {
		out[i] = e
	}
	return out
}
