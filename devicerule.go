package policy

import "fmt"

// unknownPropertyValue stands in for a missing or empty property, matching
// get_property's "<unknown>" sentinel in classify.c.
const unknownPropertyValue = "<unknown>"

// namePseudoKey is the reserved selector that reads an endpoint's
// canonical name instead of doing a property-list lookup.
const namePseudoKey = "name"

// DeviceRuleData is the payload carried by a device (sink/source) rule:
// a type tag and a 32-bit flag word, mirroring pa_classify_device_data.
type DeviceRuleData struct {
	Type  string
	Flags uint32
}

type deviceRule struct {
	selector  string // property key, or namePseudoKey
	predicate Predicate
	data      DeviceRuleData
}

// deviceRuleTable is an ordered, append-only sequence of device rules for
// one endpoint kind (sinks or sources). Classification is all-match-emit:
// every rule whose predicate fires and whose flags satisfy the caller's
// mask/value filter contributes its type tag, in insertion order.
type deviceRuleTable struct {
	rules []deviceRule
}

// Add compiles and appends a rule. A regexp compile failure is reported
// and the rule is not appended, matching the source's "discard malformed
// entry, log, keep going" behavior for device/card tables.
func (t *deviceRuleTable) Add(typeTag, selector string, method Method, arg string, flags uint32) error {
	if typeTag == "" || selector == "" {
		return fmt.Errorf("device rule requires a type and a property selector")
	}
	pred, err := NewPredicate(method, arg)
	if err != nil {
		return fmt.Errorf("device rule %q: %w", typeTag, err)
	}
	t.rules = append(t.rules, deviceRule{
		selector:  selector,
		predicate: pred,
		data:      DeviceRuleData{Type: typeTag, Flags: flags},
	})
	return nil
}

// propertyValue resolves a rule's selector against a name plus property
// list, intercepting the "name" pseudo-key before any property lookup.
func propertyValue(selector, name string, props PropertyList) string {
	var val string
	var ok bool
	if selector == namePseudoKey {
		val, ok = name, name != ""
	} else if props != nil {
		val, ok = props.Get(selector)
	}
	if !ok || val == "" {
		return unknownPropertyValue
	}
	return val
}

// Classify returns, in insertion order, the type tags of every rule whose
// predicate fires against (name, props) and whose flags satisfy
// (flags & mask) == value.
func (t *deviceRuleTable) Classify(name string, props PropertyList, mask, value uint32) []string {
	var tags []string
	for _, r := range t.rules {
		subject := propertyValue(r.selector, name, props)
		if !r.predicate.Match(subject) {
			continue
		}
		if (r.data.Flags & mask) != value {
			continue
		}
		tags = append(tags, r.data.Type)
	}
	return tags
}

// IsType reports whether some rule tagged typeTag matches (name, props),
// returning that rule's payload on success.
func (t *deviceRuleTable) IsType(name string, props PropertyList, typeTag string) (DeviceRuleData, bool) {
	for _, r := range t.rules {
		if r.data.Type != typeTag {
			continue
		}
		subject := propertyValue(r.selector, name, props)
		if r.predicate.Match(subject) {
			return r.data, true
		}
	}
	return DeviceRuleData{}, false
}

// CardRuleData is the payload carried by a card rule: a type tag, an
// optional required profile, and a flag word.
type CardRuleData struct {
	Type    string
	Profile string // empty means "no profile required"
	Flags   uint32
}

type cardRule struct {
	predicate Predicate // matched against the card's name
	data      CardRuleData
}

// cardRuleTable mirrors deviceRuleTable, matching rules against the card's
// name. Classify additionally requires the candidate's profile list to
// contain the rule's profile, when set; IsType does not check profiles.
type cardRuleTable struct {
	rules []cardRule
}

func (t *cardRuleTable) Add(typeTag string, method Method, arg, profile string, flags uint32) error {
	if typeTag == "" {
		return fmt.Errorf("card rule requires a type")
	}
	pred, err := NewPredicate(method, arg)
	if err != nil {
		return fmt.Errorf("card rule %q: %w", typeTag, err)
	}
	t.rules = append(t.rules, cardRule{
		predicate: pred,
		data:      CardRuleData{Type: typeTag, Profile: profile, Flags: flags},
	})
	return nil
}

func supportsProfile(profile string, profiles []string) bool {
	if profile == "" {
		return true
	}
	for _, p := range profiles {
		if p == profile {
			return true
		}
	}
	return false
}

func (t *cardRuleTable) Classify(name string, profiles []string, mask, value uint32) []string {
	var tags []string
	for _, r := range t.rules {
		if !r.predicate.Match(name) {
			continue
		}
		if !supportsProfile(r.data.Profile, profiles) {
			continue
		}
		if (r.data.Flags & mask) != value {
			continue
		}
		tags = append(tags, r.data.Type)
	}
	return tags
}

func (t *cardRuleTable) IsType(name, typeTag string) (CardRuleData, bool) {
	for _, r := range t.rules {
		if r.data.Type != typeTag {
			continue
		}
		if r.predicate.Match(name) {
			return r.data, true
		}
	}
	return CardRuleData{}, false
}
