package policy

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// RuleSet is the engine's own analogue of a Caddyfile: a TOML document
// describing endpoint, card and stream rules, PID preloads, and group
// definitions to apply at startup. Parsing a full host configuration
// language is out of scope; this is just enough structure for the
// engine's own tests, fixtures and CLI.
type RuleSet struct {
	SinkRules   []EndpointRuleSpec `toml:"sink_rule"`
	SourceRules []EndpointRuleSpec `toml:"source_rule"`
	CardRules   []CardRuleSpec     `toml:"card_rule"`
	StreamRules []StreamRuleSpec   `toml:"stream_rule"`
	PIDs        []PIDSpec          `toml:"pid"`
	Groups      []GroupSpec        `toml:"group"`
}

// EndpointRuleSpec is one [[sink_rule]] or [[source_rule]] table.
type EndpointRuleSpec struct {
	Type     string `toml:"type"`
	Property string `toml:"property"`
	Method   string `toml:"method"`
	Arg      string `toml:"arg"`
	Flags    uint32 `toml:"flags"`
}

// CardRuleSpec is one [[card_rule]] table.
type CardRuleSpec struct {
	Type    string `toml:"type"`
	Method  string `toml:"method"`
	Arg     string `toml:"arg"`
	Profile string `toml:"profile"`
	Flags   uint32 `toml:"flags"`
}

// StreamRuleSpec is one [[stream_rule]] table. UID is a pointer so an
// omitted field can be distinguished from an explicit 0 (root); it
// defaults to the wildcard sentinel when nil, matching the source's
// (uid_t)-1.
type StreamRuleSpec struct {
	Property   string `toml:"property"`
	Method     string `toml:"method"`
	Arg        string `toml:"arg"`
	ClientName string `toml:"client_name"`
	UID        *int64 `toml:"uid"`
	Exe        string `toml:"exe"`
	Group      string `toml:"group"`
}

// PIDSpec is one [[pid]] table preloading the PID registry.
type PIDSpec struct {
	PID        int    `toml:"pid"`
	StreamName string `toml:"stream_name"`
	HasStream  bool   `toml:"has_stream_name"`
	Group      string `toml:"group"`
}

// GroupSpec is one [[group]] table.
type GroupSpec struct {
	Name  string `toml:"name"`
	Flags uint32 `toml:"flags"`
}

// LoadRuleSet parses a rule-set file at path.
func LoadRuleSet(path string) (*RuleSet, error) {
	var rs RuleSet
	if _, err := toml.DecodeFile(path, &rs); err != nil {
		return nil, fmt.Errorf("policy: loading rule set %s: %w", path, err)
	}
	return &rs, nil
}

func parseMethod(s string) (Method, error) {
	switch s {
	case "equals":
		return MethodEquals, nil
	case "startswith":
		return MethodStartsWith, nil
	case "matches":
		return MethodMatches, nil
	case "true":
		return MethodTrue, nil
	default:
		return 0, fmt.Errorf("policy: unknown match method %q", s)
	}
}

// Apply installs every rule, PID preload and group in rs into e. Device
// and card rule failures are returned as a joined error but do not stop
// the remaining rules from being applied (malformed device/card entries
// are skipped, not fatal); a stream rule failure aborts immediately,
// since a bad stream rule makes the rest of the configuration suspect.
func (rs *RuleSet) Apply(e *Engine) error {
	var errs []error

	for _, r := range rs.SinkRules {
		if err := applyEndpointRule(e, EndpointPlayback, r); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range rs.SourceRules {
		if err := applyEndpointRule(e, EndpointCapture, r); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range rs.CardRules {
		method, err := parseMethod(r.Method)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.AddCardRule(r.Type, method, r.Arg, r.Profile, r.Flags); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range rs.StreamRules {
		hasProperty := r.Property != "" && r.Method != ""
		method := MethodEquals
		if hasProperty {
			m, err := parseMethod(r.Method)
			if err != nil {
				return err
			}
			method = m
		}
		uid := noUID
		if r.UID != nil {
			uid = *r.UID
		}
		if err := e.AddStreamRule(r.Property, method, r.Arg, hasProperty, r.ClientName, uid, r.Exe, r.Group); err != nil {
			return fmt.Errorf("policy: stream rule configuration rejected: %w", err)
		}
	}
	for _, p := range rs.PIDs {
		e.RegisterPID(p.PID, p.StreamName, p.HasStream, p.Group)
	}
	for _, g := range rs.Groups {
		e.CreateGroup(g.Name, g.Flags)
	}

	if len(errs) > 0 {
		return fmt.Errorf("policy: %d rule(s) rejected: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func applyEndpointRule(e *Engine, kind EndpointKind, r EndpointRuleSpec) error {
	method, err := parseMethod(r.Method)
	if err != nil {
		return err
	}
	return e.AddEndpointRule(kind, r.Type, r.Property, method, r.Arg, r.Flags)
}
