package policy

import (
	"context"

	"go.uber.org/zap"
)

// routeClass selects which membership list and which rule table a group
// move targets.
type routeClass int

const (
	routeToSink routeClass = iota
	routeToSource
)

// GroupMove re-routes a group's member streams to the endpoint tagged
// typeTag in the endpoint rule table. name == "" moves every group. The
// action is a no-op (success, no error) for any group lacking
// RouteAudio.
//
// Failures moving individual streams are logged and counted but do not
// abort the bulk operation: the group's endpoint pointer is updated to
// target once all its member streams have been attempted, even if some
// of them failed to move. A group now points at the endpoint its
// successfully-moved members actually ended up on; GroupMove's returned
// error only reports that at least one stream failed, it does not mean
// the group's endpoint association is stale.
func (e *Engine) GroupMove(ctx context.Context, name string, class EndpointKind, typeTag string) error {
	rc := routeToSink
	if class == EndpointCapture {
		rc = routeToSource
	}

	var target Endpoint
	var found bool
	switch rc {
	case routeToSink:
		target, found = e.findSinkByType(ctx, typeTag)
	case routeToSource:
		target, found = e.findSourceByType(ctx, typeTag)
	}
	if !found {
		// unknown type tag: no-op success.
		return nil
	}

	groups := e.groupsToMove(name)
	var failed bool
	for _, g := range groups {
		if g.Flags&RouteAudio == 0 {
			continue
		}
		err := e.moveGroup(ctx, g, rc, target)
		switch rc {
		case routeToSink:
			g.PlaybackEndpoint = target
		case routeToSource:
			g.CaptureEndpoint = target
		}
		if err != nil {
			failed = true
		}
	}
	if failed {
		return errGroupMoveFailed
	}
	return nil
}

func (e *Engine) groupsToMove(name string) []*Group {
	if name == "" {
		return e.groups.Scan()
	}
	if g, ok := e.groups.Find(name); ok {
		return []*Group{g}
	}
	return nil
}

// moveGroup asks the host to move every member stream of the appropriate
// class to target, continuing on per-stream failure.
func (e *Engine) moveGroup(ctx context.Context, g *Group, rc routeClass, target Endpoint) error {
	var anyFailed bool
	switch rc {
	case routeToSink:
		for _, ref := range g.sinkInputs {
			if err := e.host.MoveStream(ctx, ref.Stream, target); err != nil {
				anyFailed = true
				e.metrics.hostPrimitiveFailures.WithLabelValues("move_stream").Inc()
				if e.logger != nil {
					e.logger.Error("failed to move sink input",
						zap.Uint32("index", ref.Index), zap.Error(err))
				}
				continue
			}
			if e.logger != nil {
				e.logger.Debug("moved sink input",
					zap.Uint32("index", ref.Index), zap.String("sink", target.Name()))
			}
		}
	case routeToSource:
		for _, ref := range g.sourceOutputs {
			if err := e.host.MoveStream(ctx, ref.Stream, target); err != nil {
				anyFailed = true
				e.metrics.hostPrimitiveFailures.WithLabelValues("move_stream").Inc()
				continue
			}
		}
	}
	if anyFailed {
		return errGroupMoveFailed
	}
	return nil
}

func (e *Engine) findSinkByType(ctx context.Context, typeTag string) (Endpoint, bool) {
	for _, sink := range e.host.Endpoints(ctx, EndpointPlayback) {
		if _, ok := e.sinks.IsType(sink.Name(), sink.Properties(), typeTag); ok {
			return sink, true
		}
	}
	return nil, false
}

func (e *Engine) findSourceByType(ctx context.Context, typeTag string) (Endpoint, bool) {
	for _, src := range e.host.Endpoints(ctx, EndpointCapture) {
		if _, ok := e.sources.IsType(src.Name(), src.Properties(), typeTag); ok {
			return src, true
		}
	}
	return nil, false
}

// GroupCork sets the named group's corked flag and pushes the new state
// to every member sink-input. A no-op (success) if the group lacks
// CorkStream. Always reports success once the flag check passes, matching
// cork_group's unconditional "return 0".
func (e *Engine) GroupCork(ctx context.Context, name string, corked bool) error {
	g, ok := e.groups.Find(name)
	if !ok {
		return errGroupNotFound
	}
	if g.Flags&CorkStream == 0 {
		return nil
	}
	g.Corked = corked
	for _, ref := range g.sinkInputs {
		if err := e.host.CorkStream(ctx, ref.Stream, corked); err != nil {
			e.metrics.hostPrimitiveFailures.WithLabelValues("cork_stream").Inc()
			if e.logger != nil {
				e.logger.Error("failed to cork sink input", zap.Uint32("index", ref.Index), zap.Error(err))
			}
			continue
		}
		if e.logger != nil {
			e.logger.Debug("sink input cork state changed", zap.Uint32("index", ref.Index), zap.Bool("corked", corked))
		}
	}
	e.metrics.groupActions.WithLabelValues("cork", "applied").Inc()
	return nil
}

// GroupVolumeLimit clamps limit to [0,100], scales it to
// NormalizedVolumeMax, and pushes it to every member sink-input if it
// differs from the group's current limit. Unchanged values are a
// no-op success (idempotent), matching volset_group.
func (e *Engine) GroupVolumeLimit(ctx context.Context, name string, limit uint32) error {
	var g *Group
	if name == "" {
		g = e.groups.Default
	} else {
		found, ok := e.groups.Find(name)
		if !ok {
			return errGroupNotFound
		}
		g = found
	}
	if g.Flags&LimitVolume == 0 {
		return nil
	}

	if limit > 100 {
		limit = 100
	}
	scaled := limit * NormalizedVolumeMax / 100
	if scaled == g.VolumeLimit {
		return nil
	}
	g.VolumeLimit = scaled

	for _, ref := range g.sinkInputs {
		if err := e.host.SetStreamVolumeLimit(ctx, ref.Stream, scaled); err != nil {
			e.metrics.hostPrimitiveFailures.WithLabelValues("set_volume_limit").Inc()
			continue
		}
		if e.logger != nil {
			e.logger.Debug("set volume limit", zap.Uint32("index", ref.Index), zap.Uint32("limit", scaled))
		}
	}
	e.metrics.groupActions.WithLabelValues("volume_limit", "applied").Inc()
	return nil
}

// OnDefaultPlaybackEndpointChanged implements the default-endpoint
// shadow's lifecycle: when notified that the previous default (index idx)
// has gone away, it clears the shadow and the endpoint pointer of every
// group whose endpoint has that index, whether it was bound implicitly or
// by an explicit GroupMove, then re-resolves the current default from
// the host and rebinds every group whose endpoint is still null.
//
// Already-bound member streams are deliberately not re-moved to the new
// default here: a group that was actively routed to the old default
// stays there until some other event moves it, rather than every group
// flapping to a new sink on every default-sink change.
func (e *Engine) OnDefaultPlaybackEndpointChanged(ctx context.Context, idx uint32) {
	gs := e.groups

	if gs.haveDefaultShadow && gs.defaultEndpointIndex == idx {
		if e.logger != nil {
			e.logger.Debug("unset default sink", zap.Uint32("index", idx))
		}
		for _, g := range gs.Scan() {
			if g.PlaybackEndpoint != nil && g.PlaybackEndpoint.Index() == idx {
				g.PlaybackEndpoint = nil
			}
		}
		gs.defaultEndpoint = nil
		gs.haveDefaultShadow = false
	}

	if !gs.haveDefaultShadow {
		if ep, ok := e.host.DefaultPlaybackEndpoint(ctx); ok {
			gs.defaultEndpoint = ep
			gs.defaultEndpointIndex = ep.Index()
			gs.haveDefaultShadow = true

			if e.logger != nil {
				e.logger.Debug("set default sink", zap.String("name", ep.Name()), zap.Uint32("index", ep.Index()))
			}

			for _, g := range gs.Scan() {
				if g.PlaybackEndpoint == nil {
					g.PlaybackEndpoint = ep
				}
			}
		}
	}
}
