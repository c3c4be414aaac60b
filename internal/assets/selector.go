package assets

import (
	"errors"
	"sort"
	"strings"
)

// Beat is one narrative unit of a script.
type Beat struct {
	// Text is the spoken line or description for this beat.
	Text string
	// Tag is the structural role of the beat, e.g. "hook", "point",
	// "transition", "conclusion".
	Tag string
}

// Scorer rates a beat's visual importance. Higher means more deserving of
// a generated visual. A scorer may fail; Select treats any failure as a
// signal to fall back to stride selection.
type Scorer func(Beat) (float64, error)

// Select chooses which beats receive a generated visual under the given
// budget using the default importance heuristic. It never fails: when
// scoring errors or produces a degenerate ranking it falls back to even
// stride selection. The returned indices are unique, in-range, and sorted
// ascending; their count is min(budget, len(beats)).
func Select(beats []Beat, budget int) []int {
	return SelectScored(beats, budget, scoreBeat)
}

// SelectScored is Select with a caller-provided scorer.
func SelectScored(beats []Beat, budget int, scorer Scorer) []int {
	if len(beats) == 0 || budget <= 0 {
		return nil
	}
	if budget >= len(beats) {
		indices := make([]int, len(beats))
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	scores, ok := scoreAll(beats, scorer)
	if !ok {
		return strideSelect(len(beats), budget)
	}
	return topByScore(scores, budget)
}

func scoreAll(beats []Beat, scorer Scorer) ([]float64, bool) {
	if scorer == nil {
		return nil, false
	}
	scores := make([]float64, len(beats))
	degenerate := true
	for i, beat := range beats {
		score, err := safeScore(scorer, beat)
		if err != nil {
			return nil, false
		}
		scores[i] = score
		if i > 0 && scores[i] != scores[0] {
			degenerate = false
		}
	}
	// All-equal scores carry no ranking information; the stride spread
	// beats an arbitrary prefix.
	if degenerate {
		return nil, false
	}
	return scores, true
}

func safeScore(scorer Scorer, beat Beat) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = errPanickedScorer
		}
	}()
	return scorer(beat)
}

var errPanickedScorer = errors.New("scorer panicked")

func topByScore(scores []float64, budget int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if scores[order[i]] != scores[order[j]] {
			return scores[order[i]] > scores[order[j]]
		}
		return order[i] < order[j]
	})
	selected := append([]int(nil), order[:budget]...)
	sort.Ints(selected)
	return selected
}

// strideSelect spreads budget picks evenly across the timeline so visuals
// never cluster at the start.
func strideSelect(count, budget int) []int {
	stride := count / budget
	if stride < 1 {
		stride = 1
	}
	indices := make([]int, 0, budget)
	for i := 0; i < budget; i++ {
		index := i * stride
		if index > count-1 {
			index = count - 1
		}
		indices = append(indices, index)
	}
	return dedupe(indices)
}

func dedupe(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := indices[:0]
	for _, index := range indices {
		if _, ok := seen[index]; ok {
			continue
		}
		seen[index] = struct{}{}
		out = append(out, index)
	}
	return out
}

// scoreBeat is the default visual-importance heuristic: narrative
// transitions, emotional peaks, and newly introduced concepts score
// highest.
func scoreBeat(beat Beat) (float64, error) {
	score := 0.0
	text := strings.ToLower(beat.Text)

	switch strings.ToLower(strings.TrimSpace(beat.Tag)) {
	case "hook":
		score += 3
	case "transition":
		score += 2.5
	case "conclusion":
		score += 2
	case "point":
		score += 1
	}

	for _, marker := range transitionMarkers {
		if strings.Contains(text, marker) {
			score += 1.5
			break
		}
	}
	for _, marker := range emotionMarkers {
		if strings.Contains(text, marker) {
			score += 1
			break
		}
	}
	for _, marker := range conceptMarkers {
		if strings.Contains(text, marker) {
			score += 1
			break
		}
	}
	score += float64(strings.Count(beat.Text, "!"))

	return score, nil
}

var (
	transitionMarkers = []string{"but ", "however", "turns out", "meanwhile", "here's the twist", "until"}
	emotionMarkers    = []string{"amazing", "incredible", "shocking", "wild", "insane", "unbelievable", "huge"}
	conceptMarkers    = []string{"introducing", "imagine", "meet ", "what if", "for the first time", "this is"}
)
