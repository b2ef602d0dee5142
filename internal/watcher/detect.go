package watcher

import "sort"

// Detect compares the previous state against the current fingerprint and
// classifies the outcome. Precedence: absent previous state always wins as
// first run; then keyword and hash deltas combine, with keyword-level change
// being the primary actionable signal and the full hash catching edits the
// keyword list did not anticipate.
func Detect(previous WatchState, current Fingerprint) Verdict {
	if previous.LastFingerprint == nil {
		return Verdict{Kind: VerdictFirstRun}
	}

	added, removed := keywordDelta(previous.LastFingerprint.KeywordHits, current.KeywordHits)
	keywordChanged := len(added) > 0 || len(removed) > 0
	contentChanged := previous.LastFingerprint.ContentHash != current.ContentHash

	switch {
	case keywordChanged && contentChanged:
		return Verdict{Kind: VerdictBothChanged, Added: added, Removed: removed}
	case keywordChanged:
		return Verdict{Kind: VerdictKeywordChanged, Added: added, Removed: removed}
	case contentChanged:
		return Verdict{Kind: VerdictContentChanged}
	default:
		return Verdict{Kind: VerdictUnchanged}
	}
}

// keywordDelta returns the symmetric difference of two keyword-hit sets as
// sorted added/removed slices.
func keywordDelta(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, kw := range previous {
		prevSet[kw] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(current))
	for _, kw := range current {
		curSet[kw] = struct{}{}
	}
	for kw := range curSet {
		if _, ok := prevSet[kw]; !ok {
			added = append(added, kw)
		}
	}
	for kw := range prevSet {
		if _, ok := curSet[kw]; !ok {
			removed = append(removed, kw)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
