package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// PathSet matches request paths against a list of patterns. Each pattern is
// anchored and matched case-insensitively, so "/api/v1/ping" matches exactly
// and "/api/v1/leases/.*" matches a subtree.
type PathSet struct {
	patterns []*regexp.Regexp
}

// NewPathSet compiles the given patterns.
func NewPathSet(patterns ...string) (*PathSet, error) {
	ps := &PathSet{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)^" + p + "$")
		if err != nil {
			return nil, fmt.Errorf("compile path pattern %q: %w", p, err)
		}
		ps.patterns = append(ps.patterns, re)
	}
	return ps, nil
}

// MustPathSet is like NewPathSet but panics on a bad pattern. For use with
// statically declared route lists.
func MustPathSet(patterns ...string) *PathSet {
	ps, err := NewPathSet(patterns...)
	if err != nil {
		panic(err)
	}
	return ps
}

// Match reports whether path matches any pattern in the set.
func (ps *PathSet) Match(path string) bool {
	if ps == nil {
		return false
	}
	for _, re := range ps.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// TokenPathSet pairs path patterns with the name of the config token that
// authorizes them. A pattern may carry an explicit token name after a colon,
// e.g. "/webhooks/sms:api"; otherwise the default applies.
type TokenPathSet struct {
	entries []tokenPathEntry
}

type tokenPathEntry struct {
	re        *regexp.Regexp
	tokenName string
}

// NewTokenPathSet compiles pattern[:tokenName] entries with the given
// default token name.
func NewTokenPathSet(defaultToken string, patterns ...string) (*TokenPathSet, error) {
	ts := &TokenPathSet{}
	for _, p := range patterns {
		pattern, tokenName := p, defaultToken
		if i := strings.LastIndex(p, ":"); i > 0 {
			pattern, tokenName = p[:i], p[i+1:]
		}
		re, err := regexp.Compile("(?i)^" + pattern + "$")
		if err != nil {
			return nil, fmt.Errorf("compile token path pattern %q: %w", p, err)
		}
		ts.entries = append(ts.entries, tokenPathEntry{re: re, tokenName: tokenName})
	}
	return ts, nil
}

// MustTokenPathSet is like NewTokenPathSet but panics on a bad pattern.
func MustTokenPathSet(defaultToken string, patterns ...string) *TokenPathSet {
	ts, err := NewTokenPathSet(defaultToken, patterns...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Match returns the token name configured for path, if any pattern matches.
func (ts *TokenPathSet) Match(path string) (string, bool) {
	if ts == nil {
		return "", false
	}
	for _, e := range ts.entries {
		if e.re.MatchString(path) {
			return e.tokenName, true
		}
	}
	return "", false
}
