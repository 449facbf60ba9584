package policy

import (
	"fmt"

	"go.uber.org/zap"
)

// noUID is the wildcard user id, matching the source's (uid_t)-1 sentinel.
const noUID int64 = -1

// streamRule is one stream classification rule. Every field that is
// present (non-empty string, predicate set, uid != noUID) must match for
// the rule to fire; absent fields are wildcards.
type streamRule struct {
	// property match, optional as a whole unit
	hasProperty bool
	property    string
	predicate   Predicate

	clientName string
	uid        int64
	exe        string

	group string
}

// identity reports whether two rules were defined with the same
// selection criteria, which is the redefinition key used at insert time.
func (r streamRule) identity(o streamRule) bool {
	if r.hasProperty != o.hasProperty {
		return false
	}
	if r.hasProperty {
		if r.property != o.property || r.predicate.Method() != o.predicate.Method() || r.predicate.Arg() != o.predicate.Arg() {
			return false
		}
	}
	return r.clientName == o.clientName && r.uid == o.uid && r.exe == o.exe
}

// streamRuleTable is an ordered, first-match-wins list of stream rules.
// Insertion order is semantically significant and must be preserved
// across inserts; redefining an existing identity tuple replaces its
// target group in place rather than appending a new entry.
type streamRuleTable struct {
	rules  []streamRule
	logger *zap.Logger
}

// Add inserts a stream rule. At least one of (property+method+arg), uid,
// or exe must be set, in addition to group, per the source's guard in
// pa_classify_add_stream.
func (t *streamRuleTable) Add(property string, method Method, arg string, hasProperty bool, clientName string, uid int64, exe, group string) error {
	if group == "" {
		return fmt.Errorf("stream rule requires a group")
	}
	if !hasProperty && uid == noUID && exe == "" {
		return fmt.Errorf("stream rule requires a property match, a uid, or an exe path")
	}

	next := streamRule{
		hasProperty: hasProperty,
		property:    property,
		clientName:  clientName,
		uid:         uid,
		exe:         exe,
		group:       group,
	}
	if hasProperty {
		pred, err := NewPredicate(method, arg)
		if err != nil {
			return fmt.Errorf("stream rule: %w", err)
		}
		next.predicate = pred
	}

	for i := range t.rules {
		if t.rules[i].identity(next) {
			if t.logger != nil {
				t.logger.Info("stream rule redefined",
					zap.String("property", property),
					zap.String("client_name", clientName),
					zap.String("group", group))
			}
			t.rules[i].group = group
			return nil
		}
	}

	t.rules = append(t.rules, next)
	return nil
}

// find returns the first rule (in insertion order) whose fields all match
// the given candidate, treating absent rule fields as wildcards.
func (t *streamRuleTable) find(props PropertyList, clientName string, uid int64, exe string) (streamRule, bool) {
	for _, r := range t.rules {
		if r.hasProperty {
			subject := unknownPropertyValue
			if props != nil {
				if v, ok := props.Get(r.property); ok && v != "" {
					subject = v
				}
			}
			if !r.predicate.Match(subject) {
				continue
			}
		}
		if r.clientName != "" && r.clientName != clientName {
			continue
		}
		if r.uid != noUID && r.uid != uid {
			continue
		}
		if r.exe != "" && r.exe != exe {
			continue
		}
		return r, true
	}
	return streamRule{}, false
}

// Group returns the target group name for the first matching rule, or
// ("", false) if nothing matches.
func (t *streamRuleTable) Group(props PropertyList, clientName string, uid int64, exe string) (string, bool) {
	r, ok := t.find(props, clientName, uid, exe)
	if !ok {
		return "", false
	}
	return r.group, true
}
