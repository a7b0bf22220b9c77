// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultBatchSize is the number of characters buffered between repair passes.
const DefaultBatchSize = 10

// defaultPrefixNames are role labels stripped from the start of a reply.
var defaultPrefixNames = []string{"AI", "Assistant"}

var (
	reCaseBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	rePunctSpace   = regexp.MustCompile(`([.!?,:;])([A-Za-z])`)
	reJoinedA      = regexp.MustCompile(`\b(And|Or|But|So|For|Nor|Yet)a\b`)
	reJoinedThe    = regexp.MustCompile(`\b(And|Or|But|So|For|Nor|Yet)the\b`)
)

// =============================================================================
// TEXT REPAIR
// =============================================================================

// Repairer restores whitespace lost at fragment boundaries.
//
// Fragments are buffered; once at least BatchSize characters arrived since
// the previous pass, the buffer is repaired up to the last safe cut and the
// part beyond the emitted text is returned. A safe cut sits where whitespace
// meets the start of a word, so no rule can match across it and the repaired
// prefix never changes when more text arrives. Emitted text is never revised.
type Repairer struct {
	batchSize  int
	leadPrefix *regexp.Regexp
	linePrefix *regexp.Regexp
	reach      int // prefix length a cut must keep from a line start; 0 when names have no spaces

	raw       strings.Builder
	rawDone   int // bytes of raw text covered by emitted output
	committed int // bytes of repaired text already emitted
	sinceLast int // runes received since the last pass
}

// NewRepairer creates a repairer that also strips "<name>:" prefixes.
func NewRepairer(name string, batchSize int) *Repairer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	names := make([]string, 0, len(defaultPrefixNames)+1)
	if name != "" {
		names = append(names, regexp.QuoteMeta(name)+":")
	}
	for _, n := range defaultPrefixNames {
		names = append(names, n+":")
	}
	alt := strings.Join(names, "|")

	reach := 0
	if strings.ContainsAny(name, spaceChars) {
		reach = len(name) + 2
	}

	return &Repairer{
		batchSize:  batchSize,
		reach:      reach,
		leadPrefix: regexp.MustCompile(`(?i)^(?:` + alt + `)\s*`),
		linePrefix: regexp.MustCompile(`(?i)\n(?:` + alt + `)\s*`),
	}
}

// Repair applies the repair rules to text.
func (r *Repairer) Repair(text string) string {
	fixed := r.leadPrefix.ReplaceAllString(text, "")
	fixed = r.linePrefix.ReplaceAllString(fixed, "\n")
	fixed = reCaseBoundary.ReplaceAllString(fixed, "$1 $2")
	fixed = rePunctSpace.ReplaceAllString(fixed, "$1 $2")
	fixed = reJoinedA.ReplaceAllString(fixed, "$1 a")
	fixed = reJoinedThe.ReplaceAllString(fixed, "$1 the")
	return fixed
}

// Feed buffers a raw fragment. When a batch is complete it returns the newly
// committed repaired text and true.
func (r *Repairer) Feed(fragment string) (string, bool) {
	r.raw.WriteString(fragment)
	r.sinceLast += utf8.RuneCountInString(fragment)
	if r.sinceLast < r.batchSize {
		return "", false
	}
	r.sinceLast = 0
	return r.advance()
}

// Flush repairs the remaining tail at end of stream.
func (r *Repairer) Flush() (string, bool) {
	r.sinceLast = 0
	return r.emit(r.raw.Len())
}

func (r *Repairer) advance() (string, bool) {
	cut := r.safeCut(r.raw.String())
	if cut <= r.rawDone {
		return "", false
	}
	return r.emit(cut)
}

// emit repairs raw[:cut] and returns the part not emitted yet.
func (r *Repairer) emit(cut int) (string, bool) {
	fixed := r.Repair(r.raw.String()[:cut])
	r.rawDone = cut
	if r.committed >= len(fixed) {
		return "", false
	}
	suffix := fixed[r.committed:]
	r.committed = len(fixed)
	return suffix, true
}

// safeCut returns the last offset in raw that starts a word after whitespace
// and lies outside any possible name prefix, or 0 when there is none.
func (r *Repairer) safeCut(raw string) int {
	for c := len(raw) - 1; c > r.rawDone; c-- {
		if !isSpace(raw[c-1]) || isSpace(raw[c]) {
			continue
		}
		if r.reach > 0 {
			line := strings.LastIndexByte(raw[:c], '\n')
			if line < 0 {
				line = 0
			}
			if c-line <= r.reach {
				continue
			}
		}
		return c
	}
	return 0
}

// spaceChars matches the \s class of the repair patterns.
const spaceChars = " \t\n\f\r"

func isSpace(b byte) bool {
	return strings.IndexByte(spaceChars, b) >= 0
}
