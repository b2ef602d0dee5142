// Package fingerprint derives the comparable content summary from page text.
package fingerprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Engine computes fingerprints. Same normalized text always yields the same
// content hash; the hash algorithm behind watcher.Hasher must be stable
// across runs.
type Engine struct {
	hasher   watcher.Hasher
	clock    watcher.Clock
	caseFold bool
}

// New builds an Engine. caseFold controls whether the text is lower-cased
// before hashing; keyword matching is case-insensitive either way.
func New(hasher watcher.Hasher, clock watcher.Clock, caseFold bool) *Engine {
	return &Engine{hasher: hasher, clock: clock, caseFold: caseFold}
}

// Compute hashes the normalized text and records which configured keywords
// are currently present. Keywords are matched as case-insensitive substrings
// and recorded lower-cased, deduplicated, sorted.
func (e *Engine) Compute(normalizedText string, keywords []string) (watcher.Fingerprint, error) {
	hashInput := normalizedText
	if e.caseFold {
		hashInput = strings.ToLower(hashInput)
	}
	digest, err := e.hasher.Hash([]byte(hashInput))
	if err != nil {
		return watcher.Fingerprint{}, fmt.Errorf("hash content: %w", err)
	}

	return watcher.Fingerprint{
		ContentHash: digest,
		KeywordHits: keywordHits(normalizedText, keywords),
		CapturedAt:  e.clock.Now(),
	}, nil
}

func keywordHits(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{}, len(keywords))
	var hits []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(lower, kw) {
			seen[kw] = struct{}{}
			hits = append(hits, kw)
		}
	}
	sort.Strings(hits)
	return hits
}
