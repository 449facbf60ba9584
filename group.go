package policy

import (
	"context"

	"go.uber.org/zap"
)

// Group policy flags (PA_POLICY_GROUP_FLAGS_*).
const (
	RouteAudio  uint32 = 1 << iota // group's streams may be re-routed by GroupMove
	LimitVolume                    // group's streams accept a volume cap
	CorkStream                     // group's streams may be corked/uncorked
)

// ClientFlag is the composite mask set on the default group.
const ClientFlag = RouteAudio | LimitVolume | CorkStream

// NormalizedVolumeMax is this engine's analogue of PA_VOLUME_NORM: the
// host's "100%" volume unit that a 0..100 percentage is scaled against.
const NormalizedVolumeMax uint32 = 65536

// DefaultGroupName is the reserved fallback group name (PA_POLICY_DEFAULT_GROUP_NAME).
const DefaultGroupName = "default"

// groupHashSize is the group store's bucket width
// (PA_POLICY_GROUP_HASH_DIM). Must be a power of two.
const groupHashSize = 256
const groupHashMask = groupHashSize - 1

// StreamRef is a membership-list entry: a borrowed stream reference plus
// its index, so removal-by-index doesn't need to touch the stream itself.
type StreamRef struct {
	Index  uint32
	Stream Stream
}

// Group is a named policy aggregate: membership lists of currently bound
// streams, per-group action flags, a volume cap, cork state, and the
// endpoints it currently routes to.
type Group struct {
	Name   string
	Flags  uint32
	Corked bool

	// VolumeLimit is scaled to NormalizedVolumeMax; see GroupVolumeLimit.
	VolumeLimit uint32

	// PlaybackEndpoint is nil when the group implicitly follows the
	// host's default sink rather than a sink it was explicitly moved to.
	PlaybackEndpoint Endpoint
	CaptureEndpoint  Endpoint

	// sinkInputs and sourceOutputs are ordered most-recently-added-first,
	// matching the source's push-to-head membership lists.
	sinkInputs    []StreamRef
	sourceOutputs []StreamRef
}

// SinkInputs returns the group's current sink-input members, in
// most-recently-added-first order.
func (g *Group) SinkInputs() []StreamRef { return g.sinkInputs }

// SourceOutputs returns the group's current source-output members, in
// most-recently-added-first order.
func (g *Group) SourceOutputs() []StreamRef { return g.sourceOutputs }

func hashGroupName(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = 38501 * (h + uint32(name[i]))
	}
	return h & groupHashMask
}

// GroupSet is a fixed-width bucket array of groups by name hash, plus a
// distinguished default group. It owns every Group's lifecycle.
type GroupSet struct {
	buckets     [groupHashSize][]*Group
	Default     *Group
	streamGroup map[uint32]string // stream index -> owning group name, invariant 1's back-reference

	defaultEndpoint      Endpoint
	defaultEndpointIndex uint32
	haveDefaultShadow    bool

	host    HostAdapter
	metrics *engineMetrics
	logger  *zap.Logger
}

// NewGroupSet constructs an empty group set and its default group. host and
// metrics are used to reconcile newly-bound streams with their group's
// current routing/cork/volume state in AddSinkInput and AddSourceOutput.
func NewGroupSet(host HostAdapter, metrics *engineMetrics, logger *zap.Logger) *GroupSet {
	gs := &GroupSet{host: host, metrics: metrics, logger: logger, streamGroup: make(map[uint32]string)}
	gs.Default = gs.createOrFind(DefaultGroupName, ClientFlag)
	return gs
}

// CreateGroup returns the named group, creating it with the given flags
// if it doesn't exist. Flags on a second call for an existing name are
// ignored (existing behavior preserved), matching pa_policy_group_new.
func (gs *GroupSet) CreateGroup(name string, flags uint32) *Group {
	return gs.createOrFind(name, flags)
}

func (gs *GroupSet) createOrFind(name string, flags uint32) *Group {
	idx := hashGroupName(name)
	for _, g := range gs.buckets[idx] {
		if g.Name == name {
			return g
		}
	}
	g := &Group{
		Name:        name,
		Flags:       flags,
		VolumeLimit: NormalizedVolumeMax,
	}
	if gs.haveDefaultShadow {
		g.PlaybackEndpoint = gs.defaultEndpoint
	}
	gs.buckets[idx] = append(gs.buckets[idx], g)

	if gs.logger != nil {
		endpointName := "<null>"
		if g.PlaybackEndpoint != nil {
			endpointName = g.PlaybackEndpoint.Name()
		}
		gs.logger.Info("created group",
			zap.String("name", g.Name),
			zap.Uint32("limit_pct", g.VolumeLimit*100/NormalizedVolumeMax),
			zap.String("sink", endpointName),
			zap.Uint32("flags", g.Flags))
	}
	return g
}

// Find returns the named group, if any.
func (gs *GroupSet) Find(name string) (*Group, bool) {
	idx := hashGroupName(name)
	for _, g := range gs.buckets[idx] {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Scan returns a snapshot of every group in the set. Bulk actions and
// membership-removal-by-index iterate this snapshot rather than the live
// buckets, so a host callback invoked mid-scan cannot corrupt iteration
// by deleting the group currently being visited.
func (gs *GroupSet) Scan() []*Group {
	var all []*Group
	for _, bucket := range gs.buckets {
		all = append(all, bucket...)
	}
	return all
}

// Delete removes the named group. If it has sink-input members and is
// not the default group, they are spliced onto the front of the default
// group's list, so the default group's membership now starts with the
// deleted group's former head (invariant 2); if it IS the default group,
// its members are orphaned instead. Source-output members of any deleted
// group are unconditionally orphaned. A name with no matching group is
// silently ignored.
func (gs *GroupSet) Delete(name string) {
	idx := hashGroupName(name)
	bucket := gs.buckets[idx]
	pos := -1
	for i, g := range bucket {
		if g.Name == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	g := bucket[pos]
	gs.buckets[idx] = append(bucket[:pos], bucket[pos+1:]...)

	if len(g.sinkInputs) > 0 {
		if g == gs.Default {
			for _, ref := range g.sinkInputs {
				delete(gs.streamGroup, ref.Index)
			}
		} else {
			for _, ref := range g.sinkInputs {
				gs.streamGroup[ref.Index] = gs.Default.Name
			}
			gs.Default.sinkInputs = append(g.sinkInputs, gs.Default.sinkInputs...)
		}
	}
	for _, ref := range g.sourceOutputs {
		delete(gs.streamGroup, ref.Index)
	}
	g.sinkInputs = nil
	g.sourceOutputs = nil
}

// StreamGroup returns the name of the group a stream index is currently a
// member of, satisfying invariant 1 (a stream's group back-reference
// agrees with the group's membership list).
func (gs *GroupSet) StreamGroup(idx uint32) (string, bool) {
	name, ok := gs.streamGroup[idx]
	return name, ok
}

// AddSinkInput attaches si to the named group (or the default group, if
// name is ""), pushing it to the head of the membership list. If the
// group is already bound to a playback endpoint, si is immediately
// reconciled with the group's current state: moved to that endpoint,
// corked if the group is corked, and given the group's volume limit.
func (gs *GroupSet) AddSinkInput(ctx context.Context, name string, si Stream) *Group {
	g := gs.Default
	if name != "" {
		if found, ok := gs.Find(name); ok {
			g = found
		} else {
			g = gs.Default
		}
	}
	ref := StreamRef{Index: si.Index(), Stream: si}
	g.sinkInputs = append([]StreamRef{ref}, g.sinkInputs...)
	gs.streamGroup[ref.Index] = g.Name

	if g.PlaybackEndpoint != nil {
		gs.reconcileNewSinkInput(ctx, g, si)
	}
	if gs.logger != nil {
		gs.logger.Debug("sink input added to group", zap.Uint32("index", ref.Index), zap.String("group", g.Name))
	}
	return g
}

// AddSourceOutput attaches so to the named group. Unlike sink-inputs,
// there is no implicit default capture group: an unknown name is a no-op.
// If the group is already bound to a capture endpoint, so is immediately
// moved there.
func (gs *GroupSet) AddSourceOutput(ctx context.Context, name string, so Stream) (*Group, bool) {
	g, ok := gs.Find(name)
	if !ok {
		return nil, false
	}
	ref := StreamRef{Index: so.Index(), Stream: so}
	g.sourceOutputs = append([]StreamRef{ref}, g.sourceOutputs...)
	gs.streamGroup[ref.Index] = g.Name

	if g.CaptureEndpoint != nil {
		if err := gs.host.MoveStream(ctx, so, g.CaptureEndpoint); err != nil {
			gs.recordHostFailure("move_stream")
			if gs.logger != nil {
				gs.logger.Error("failed to move newly bound source output",
					zap.Uint32("index", ref.Index), zap.Error(err))
			}
		}
	}
	if gs.logger != nil {
		gs.logger.Debug("source output added to group", zap.Uint32("index", ref.Index), zap.String("group", g.Name))
	}
	return g, true
}

// reconcileNewSinkInput pushes a freshly-bound group's current routing,
// cork and volume-limit state onto si, mirroring
// pa_policy_group_insert_sink_input's behavior when the group already has
// a sink.
func (gs *GroupSet) reconcileNewSinkInput(ctx context.Context, g *Group, si Stream) {
	if err := gs.host.MoveStream(ctx, si, g.PlaybackEndpoint); err != nil {
		gs.recordHostFailure("move_stream")
		if gs.logger != nil {
			gs.logger.Error("failed to move newly bound sink input", zap.Uint32("index", si.Index()), zap.Error(err))
		}
	}
	if g.Corked {
		if err := gs.host.CorkStream(ctx, si, g.Corked); err != nil {
			gs.recordHostFailure("cork_stream")
		}
	}
	if err := gs.host.SetStreamVolumeLimit(ctx, si, g.VolumeLimit); err != nil {
		gs.recordHostFailure("set_volume_limit")
	}
}

func (gs *GroupSet) recordHostFailure(primitive string) {
	if gs.metrics != nil {
		gs.metrics.hostPrimitiveFailures.WithLabelValues(primitive).Inc()
	}
}

// RemoveSinkInput removes the sink-input with the given index from
// whichever group currently holds it; a no-op if no group has it.
func (gs *GroupSet) RemoveSinkInput(idx uint32) (*Group, bool) {
	for _, g := range gs.Scan() {
		for i, ref := range g.sinkInputs {
			if ref.Index == idx {
				g.sinkInputs = append(g.sinkInputs[:i], g.sinkInputs[i+1:]...)
				delete(gs.streamGroup, idx)
				return g, true
			}
		}
	}
	return nil, false
}

// RemoveSourceOutput removes the source-output with the given index from
// whichever group currently holds it; a no-op if no group has it.
func (gs *GroupSet) RemoveSourceOutput(idx uint32) (*Group, bool) {
	for _, g := range gs.Scan() {
		for i, ref := range g.sourceOutputs {
			if ref.Index == idx {
				g.sourceOutputs = append(g.sourceOutputs[:i], g.sourceOutputs[i+1:]...)
				delete(gs.streamGroup, idx)
				return g, true
			}
		}
	}
	return nil, false
}
