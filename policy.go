// Package policy implements the classification and group-management core
// of an audio-server routing plugin. It classifies endpoints, cards and
// streams into named policy groups using a rule database, and enforces
// per-group routing, volume-cap and cork actions as group membership
// evolves at runtime.
//
// The engine owns no goroutines and takes no locks: every public method
// is synchronous and is meant to be called from the host's single
// cooperative event loop.
package policy

import (
	"errors"

	"go.uber.org/zap"
)

var (
	errGroupNotFound   = errors.New("policy: group not found")
	errGroupMoveFailed = errors.New("policy: one or more streams failed to move")
)

// Engine is the policy core: rule tables, PID registry, group store, and
// the host adapter they act through.
type Engine struct {
	sinks   deviceRuleTable
	sources deviceRuleTable
	cards   cardRuleTable
	streams streamRuleTable
	pids    pidRegistry
	groups  *GroupSet

	host    HostAdapter
	logger  *zap.Logger
	metrics *engineMetrics
}

// New constructs an engine bound to the given host adapter. logger may be
// nil, in which case a no-op logger is used.
func New(host HostAdapter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		host:    host,
		logger:  logger,
		metrics: newEngineMetrics(),
	}
	e.streams.logger = logger.Named("streamrules")
	e.groups = NewGroupSet(host, e.metrics, logger.Named("groups"))
	return e
}

// AddEndpointRule adds a sink or source classification rule. kind selects
// which table the rule is appended to.
func (e *Engine) AddEndpointRule(kind EndpointKind, typeTag, property string, method Method, arg string, flags uint32) error {
	switch kind {
	case EndpointPlayback:
		return e.sinks.Add(typeTag, property, method, arg, flags)
	case EndpointCapture:
		return e.sources.Add(typeTag, property, method, arg, flags)
	default:
		return errors.New("policy: unknown endpoint kind")
	}
}

// AddCardRule adds a card classification rule. profile, if non-empty,
// requires the candidate card to support that profile for the rule to
// fire.
func (e *Engine) AddCardRule(typeTag string, method Method, arg, profile string, flags uint32) error {
	return e.cards.Add(typeTag, method, arg, profile, flags)
}

// AddStreamRule adds a stream classification rule. Pass hasProperty=false
// to omit the property+method+arg clause entirely (uid/exe-only rule).
func (e *Engine) AddStreamRule(property string, method Method, arg string, hasProperty bool, clientName string, uid int64, exe, group string) error {
	return e.streams.Add(property, method, arg, hasProperty, clientName, uid, exe, group)
}

// RegisterPID installs a fast-path (pid, streamName) -> group override,
// consulted before stream rule-table matching. Pass hasStreamName=false
// to register an entry that matches only those streams of pid that have
// no media.name property; it does not match streams that carry a name.
func (e *Engine) RegisterPID(pid int, streamName string, hasStreamName bool, group string) {
	e.pids.Insert(pid, streamName, hasStreamName, group)
}

// UnregisterPID removes a PID registry entry; a no-op if none exists.
func (e *Engine) UnregisterPID(pid int, streamName string, hasStreamName bool) {
	e.pids.Remove(pid, streamName, hasStreamName)
}

// CreateGroup returns the named policy group, creating it with the given
// flags if it doesn't already exist.
func (e *Engine) CreateGroup(name string, flags uint32) *Group {
	return e.groups.CreateGroup(name, flags)
}

// DeleteGroup removes the named group, reparenting or orphaning its
// members. Deleting an unknown name is a no-op.
func (e *Engine) DeleteGroup(name string) {
	e.groups.Delete(name)
}

// GroupFind returns the named group, if any.
func (e *Engine) GroupFind(name string) (*Group, bool) {
	return e.groups.Find(name)
}

// Groups returns every currently defined group.
func (e *Engine) Groups() []*Group {
	return e.groups.Scan()
}
