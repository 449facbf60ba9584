package policy

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mediaNameKey is the stream property read as the stream's name for PID
// registry lookups, matching PA_PROP_MEDIA_NAME.
const mediaNameKey = "media.name"

// ClassifyStream classifies an existing stream into a policy group,
// consulting the PID registry before falling back to stream rule-table
// matching. Returns DefaultGroupName if nothing matches.
func (e *Engine) ClassifyStream(s Stream) string {
	client, hasClient := s.Client()
	if !hasClient {
		group, ok := e.streams.Group(s.Properties(), "", noUID, "")
		return e.finishClassify(group, "", "", "", 0, noUID, "", resultKind(ok, "rule"))
	}
	return e.classifyForClient(client, s.Properties())
}

// classifyForClient runs the PID-registry-then-rule-table lookup shared
// by ClassifyStream and ClassifyStreamByNewData. client.Arg0() is not
// matched against any rule field; it is only carried through to the
// classification log record.
func (e *Engine) classifyForClient(client Client, props PropertyList) string {
	pid := client.PID()
	streamName, hasStreamName := "", false
	if props != nil {
		if v, ok := props.Get(mediaNameKey); ok && v != "" {
			streamName, hasStreamName = v, true
		}
	}
	arg0 := client.Arg0()

	if group, ok := e.pids.Lookup(pid, streamName, hasStreamName); ok {
		return e.finishClassify(group, client.Name(), streamName, arg0, pid, client.UID(), client.Exe(), "pid")
	}

	group, ok := e.streams.Group(props, client.Name(), client.UID(), client.Exe())
	return e.finishClassify(group, client.Name(), streamName, arg0, pid, client.UID(), client.Exe(), resultKind(ok, "rule"))
}

// resultKind returns kind when matched, or "default" otherwise.
func resultKind(matched bool, kind string) string {
	if matched {
		return kind
	}
	return "default"
}

func (e *Engine) finishClassify(group, clientName, streamName, arg0 string, pid int, uid int64, exe, kind string) string {
	if kind == "default" || group == "" {
		group = DefaultGroupName
	}

	reqID := uuid.New()
	e.metrics.classifyTotal.WithLabelValues(kind).Inc()

	if e.logger != nil {
		e.logger.Debug("classified stream",
			zap.String("request_id", reqID.String()),
			zap.String("client_name", clientName),
			zap.String("stream_name", streamName),
			zap.String("arg0", arg0),
			zap.Int("pid", pid),
			zap.Int64("uid", uid),
			zap.String("exe", exe),
			zap.String("group", group),
			zap.String("result", kind))
	}
	return group
}

// NewStreamData is the pre-creation view of a stream: the same identity
// fields a real Stream exposes, available before the stream object
// itself exists (mirrors pa_sink_input_new_data / pa_source_output_new_data).
type NewStreamData struct {
	Client     Client // nil for a clientless stream
	Properties PropertyList
}

// ClassifyStreamByNewData classifies a not-yet-created stream, exactly as
// ClassifyStream would once it exists.
func (e *Engine) ClassifyStreamByNewData(data NewStreamData) string {
	if data.Client == nil {
		group, ok := e.streams.Group(data.Properties, "", noUID, "")
		return e.finishClassify(group, "", "", "", 0, noUID, "", resultKind(ok, "rule"))
	}
	return e.classifyForClient(data.Client, data.Properties)
}

// ClassifyEndpoint returns the space-separated-equivalent list of type
// tags (as a slice) for a sink or source, filtered by (mask, value)
// against each matching rule's flags.
func (e *Engine) ClassifyEndpoint(kind EndpointKind, ep Endpoint, mask, value uint32) []string {
	table := &e.sinks
	if kind == EndpointCapture {
		table = &e.sources
	}
	return table.Classify(ep.Name(), ep.Properties(), mask, value)
}

// ClassifyCard returns the type tags for a card, filtered by (mask,
// value) and by profile support.
func (e *Engine) ClassifyCard(card Card, mask, value uint32) []string {
	return e.cards.Classify(card.Name(), card.Profiles(), mask, value)
}

// IsEndpointType reports whether ep matches typeTag in the given rule
// table, returning that rule's payload on success.
func (e *Engine) IsEndpointType(kind EndpointKind, ep Endpoint, typeTag string) (DeviceRuleData, bool) {
	table := &e.sinks
	if kind == EndpointCapture {
		table = &e.sources
	}
	return table.IsType(ep.Name(), ep.Properties(), typeTag)
}

// IsCardType reports whether card matches typeTag, returning that rule's
// payload on success.
func (e *Engine) IsCardType(card Card, typeTag string) (CardRuleData, bool) {
	return e.cards.IsType(card.Name(), typeTag)
}
