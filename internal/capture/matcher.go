package capture

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// Matcher names accepted in configuration
const (
	MatcherEmbeddedID = "embedded-id"
	MatcherPositional = "positional"
	MatcherIndex      = "index"
	MatcherDimension  = "dimension"
)

// DefaultMatchers is the layered order used when nothing is configured
var DefaultMatchers = []string{MatcherEmbeddedID, MatcherPositional, MatcherIndex}

// Matcher proposes display→source pairs. The returned map is keyed by index
// into displays and valued by index into sources; it may be partial.
type Matcher interface {
	Name() string
	Match(displays []display.Info, sources []Source) map[int]int
}

// Pair is one display matched to one source
type Pair struct {
	Display  display.Info
	Source   Source
	Strategy string
}

// Chain runs matchers most-specific first; each one only sees the displays
// and sources left unmatched by the previous ones, so the result stays
// injective.
type Chain []Matcher

// NewChain builds a chain from matcher names
func NewChain(names []string, tolerance, retryTolerance int) (Chain, error) {
	if len(names) == 0 {
		names = DefaultMatchers
	}

	chain := make(Chain, 0, len(names))
	for _, name := range names {
		switch name {
		case MatcherEmbeddedID:
			chain = append(chain, EmbeddedIDMatcher{})
		case MatcherPositional:
			chain = append(chain, PositionalMatcher{})
		case MatcherIndex:
			chain = append(chain, IndexMatcher{})
		case MatcherDimension:
			chain = append(chain, DimensionMatcher{Tolerance: tolerance, RetryTolerance: retryTolerance})
		default:
			return nil, fmt.Errorf("unknown matcher: %s", name)
		}
	}
	return chain, nil
}

// Match pairs displays with sources. Pairs come back in display order;
// displays without a candidate at any layer are omitted.
func (c Chain) Match(displays []display.Info, sources []Source) []Pair {
	log := logger.WithComponent("matcher")

	assigned := make(map[int]int, len(displays))
	strategy := make(map[int]string, len(displays))
	used := make(map[int]bool, len(sources))

	for _, m := range c {
		if len(assigned) == len(displays) || len(used) == len(sources) {
			break
		}

		var dIdx, sIdx []int
		var ds []display.Info
		var ss []Source
		for i, d := range displays {
			if _, ok := assigned[i]; !ok {
				dIdx = append(dIdx, i)
				ds = append(ds, d)
			}
		}
		for j, s := range sources {
			if !used[j] {
				sIdx = append(sIdx, j)
				ss = append(ss, s)
			}
		}

		proposed := m.Match(ds, ss)
		keys := make([]int, 0, len(proposed))
		for di := range proposed {
			keys = append(keys, di)
		}
		sort.Ints(keys)

		for _, di := range keys {
			sj := proposed[di]
			if di < 0 || di >= len(dIdx) || sj < 0 || sj >= len(sIdx) {
				continue
			}
			oi, oj := dIdx[di], sIdx[sj]
			if _, taken := assigned[oi]; taken || used[oj] {
				continue
			}
			assigned[oi] = oj
			strategy[oi] = m.Name()
			used[oj] = true

			log.Debug().
				Int64("display_id", displays[oi].ID).
				Str("source_id", sources[oj].ID).
				Str("strategy", m.Name()).
				Msg("Matched capture source")
		}
	}

	pairs := make([]Pair, 0, len(assigned))
	for i, d := range displays {
		j, ok := assigned[i]
		if !ok {
			log.Debug().Int64("display_id", d.ID).Msg("No capture source for display")
			continue
		}
		pairs = append(pairs, Pair{Display: d, Source: sources[j], Strategy: strategy[i]})
	}
	return pairs
}

// EmbeddedIDMatcher matches sources whose opaque id encodes the native
// display id, e.g. "screen:69733632:0"
type EmbeddedIDMatcher struct{}

var embeddedIDPattern = regexp.MustCompile(`^screen:(-?\d+)(?::\d+)?$`)

func (EmbeddedIDMatcher) Name() string { return MatcherEmbeddedID }

func (EmbeddedIDMatcher) Match(displays []display.Info, sources []Source) map[int]int {
	byID := make(map[int64]int, len(displays))
	for i, d := range displays {
		if _, dup := byID[d.ID]; !dup {
			byID[d.ID] = i
		}
	}

	out := make(map[int]int)
	for j, s := range sources {
		id, ok := parseEmbeddedID(s.ID)
		if !ok {
			continue
		}
		i, ok := byID[id]
		if !ok {
			continue
		}
		if _, taken := out[i]; taken {
			continue
		}
		out[i] = j
	}
	return out
}

func parseEmbeddedID(sourceID string) (int64, bool) {
	m := embeddedIDPattern.FindStringSubmatch(sourceID)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// PositionalMatcher sorts sources by the trailing numeral in their name and
// displays primary-first, then pairs by position. Sources without a numeral
// keep their list order after the numbered ones. The layer is skipped when no
// source name carries a numeral.
type PositionalMatcher struct{}

var trailingNumberPattern = regexp.MustCompile(`(\d+)\s*$`)

func (PositionalMatcher) Name() string { return MatcherPositional }

func (PositionalMatcher) Match(displays []display.Info, sources []Source) map[int]int {
	numbers := make([]int, len(sources))
	numbered := make([]bool, len(sources))
	hasNumeral := false
	for j, s := range sources {
		numbers[j], numbered[j] = trailingNumber(s.Name)
		hasNumeral = hasNumeral || numbered[j]
	}
	if !hasNumeral {
		return nil
	}

	sOrder := make([]int, len(sources))
	for j := range sOrder {
		sOrder[j] = j
	}
	sort.SliceStable(sOrder, func(a, b int) bool {
		ja, jb := sOrder[a], sOrder[b]
		if numbered[ja] != numbered[jb] {
			return numbered[ja]
		}
		return numbered[ja] && numbers[ja] < numbers[jb]
	})

	dOrder := make([]int, len(displays))
	for i := range dOrder {
		dOrder[i] = i
	}
	sort.SliceStable(dOrder, func(a, b int) bool {
		return displays[dOrder[a]].IsPrimary && !displays[dOrder[b]].IsPrimary
	})

	out := make(map[int]int)
	for k := 0; k < len(dOrder) && k < len(sOrder); k++ {
		out[dOrder[k]] = sOrder[k]
	}
	return out
}

func trailingNumber(name string) (int, bool) {
	m := trailingNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IndexMatcher pairs the i-th display with the i-th source in list order
type IndexMatcher struct{}

func (IndexMatcher) Name() string { return MatcherIndex }

func (IndexMatcher) Match(displays []display.Info, sources []Source) map[int]int {
	out := make(map[int]int)
	for i := 0; i < len(displays) && i < len(sources); i++ {
		out[i] = i
	}
	return out
}

// DimensionMatcher compares a display's nominal physical size against each
// source's bitmap size. Displays left over after the first pass are retried
// with RetryTolerance. OS thumbnail resizing defeats this, so it is only
// offered as an opt-in fallback.
type DimensionMatcher struct {
	Tolerance      int
	RetryTolerance int
}

func (DimensionMatcher) Name() string { return MatcherDimension }

func (m DimensionMatcher) Match(displays []display.Info, sources []Source) map[int]int {
	out := make(map[int]int)
	used := make(map[int]bool)

	pass := func(tolerance int) {
		for i, d := range displays {
			if _, ok := out[i]; ok {
				continue
			}
			wantW, wantH := d.PhysicalSize()
			for j, s := range sources {
				if used[j] {
					continue
				}
				w, h := s.Size()
				if within(w, wantW, tolerance) && within(h, wantH, tolerance) {
					out[i] = j
					used[j] = true
					break
				}
			}
		}
	}

	pass(m.Tolerance)
	if m.RetryTolerance > m.Tolerance && len(out) < len(displays) {
		pass(m.RetryTolerance)
	}
	return out
}

func within(got, want, tolerance int) bool {
	return math.Abs(float64(got-want)) <= float64(tolerance)
}
