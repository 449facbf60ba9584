package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Method names the four ways a rule can test a subject string against an
// argument, matching classify.c's pa_classify_method enum.
type Method int

const (
	// MethodEquals requires a byte-for-byte match.
	MethodEquals Method = iota
	// MethodStartsWith requires the subject to have the argument as a byte prefix.
	MethodStartsWith
	// MethodMatches requires the argument, compiled as a regular expression,
	// to match the subject anchored at both ends, with capture group 1 (if
	// the expression has one) not participating in the match.
	MethodMatches
	// MethodTrue always matches, regardless of subject.
	MethodTrue
)

func (m Method) String() string {
	switch m {
	case MethodEquals:
		return "equals"
	case MethodStartsWith:
		return "startswith"
	case MethodMatches:
		return "matches"
	case MethodTrue:
		return "true"
	default:
		return "unknown"
	}
}

// Predicate is a compiled (method, argument) pair. The argument is fused
// with the method instead of being carried alongside a function pointer,
// per the tagged-variant approach recommended for systems-language
// rewrites of the original C union.
type Predicate struct {
	method Method
	arg    string
	re     *regexp.Regexp
}

// NewPredicate compiles a predicate for the given method and argument.
// MethodMatches compiles arg as a regular expression; a compile failure is
// returned as an error so the caller can decide whether the owning rule
// table should reject or skip the rule.
func NewPredicate(method Method, arg string) (Predicate, error) {
	p := Predicate{method: method, arg: arg}
	if method == MethodMatches {
		re, err := regexp.Compile(arg)
		if err != nil {
			return Predicate{}, fmt.Errorf("compiling regexp %q: %w", arg, err)
		}
		p.re = re
	}
	return p, nil
}

// MustPredicate is like NewPredicate but panics on error; used for rules
// known at compile time to be valid (tests, fixtures).
func MustPredicate(method Method, arg string) Predicate {
	p, err := NewPredicate(method, arg)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether subject satisfies the predicate. An absent
// subject (empty string) never matches, except under MethodTrue.
func (p Predicate) Match(subject string) bool {
	switch p.method {
	case MethodEquals:
		return subject != "" && subject == p.arg
	case MethodStartsWith:
		return subject != "" && strings.HasPrefix(subject, p.arg)
	case MethodMatches:
		return subject != "" && matchesAnchored(p.re, subject)
	case MethodTrue:
		return true
	default:
		return false
	}
}

// matchesAnchored reproduces the source's
// "rm_so==0 && rm_eo==len && m[1].rm_so==-1" rule: the overall match must
// span the entire subject, and capture group 1 must not have participated.
func matchesAnchored(re *regexp.Regexp, subject string) bool {
	loc := re.FindStringSubmatchIndex(subject)
	if loc == nil {
		return false
	}
	if loc[0] != 0 || loc[1] != len(subject) {
		return false
	}
	// loc[2] and loc[3] are group 1's bounds; -1 means it did not participate.
	if len(loc) > 2 && loc[2] != -1 {
		return false
	}
	return true
}

// Method returns the predicate's matching method.
func (p Predicate) Method() Method { return p.method }

// Arg returns the predicate's source argument (the regexp source, for
// MethodMatches).
func (p Predicate) Arg() string { return p.arg }
