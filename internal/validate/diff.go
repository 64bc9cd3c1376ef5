package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

// changedPair is a baseline record and the captured record it was matched
// with, where the two disagree.
type changedPair struct {
	ExpectedIndex int
	ActualIndex   int
	Diff          string
}

// comparison is the outcome of matching captured records against the baseline.
type comparison struct {
	Equal    bool
	DiffText string
	Changed  []changedPair
}

// compareRecords deep-compares the two record sequences after applying the
// exclude patterns. With ignoreOrder the sequences are matched as sets.
func compareRecords(expected, actual []Record, cc *config.CompareConfig) comparison {
	patterns := compilePatterns(cc)
	scrubbedExpected := scrubRecords(expected, patterns)
	scrubbedActual := scrubRecords(actual, patterns)

	var opts []cmp.Option
	ignoreOrder := cc.IgnoreOrderEnabled()
	if ignoreOrder {
		opts = append(opts, cmpopts.SortSlices(func(a, b Record) bool {
			return compactJSON(a) < compactJSON(b)
		}))
	}

	diffText := cmp.Diff(scrubbedExpected, scrubbedActual, opts...)
	if diffText == "" {
		return comparison{Equal: true}
	}

	result := comparison{DiffText: diffText}
	if len(expected) == len(actual) {
		result.Changed = changedPairs(scrubbedExpected, scrubbedActual, ignoreOrder)
	}
	return result
}

// changedPairs lines the two equal-length sequences up and returns the pairs
// that disagree. With ignoreOrder both sides are visited in canonical order,
// so a pure reordering produces no pairs.
func changedPairs(expected, actual []Record, ignoreOrder bool) []changedPair {
	orderE := recordOrder(expected, ignoreOrder)
	orderA := recordOrder(actual, ignoreOrder)

	var pairs []changedPair
	for k := range orderE {
		e, a := orderE[k], orderA[k]
		if diff := cmp.Diff(expected[e], actual[a]); diff != "" {
			pairs = append(pairs, changedPair{ExpectedIndex: e, ActualIndex: a, Diff: diff})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ExpectedIndex < pairs[j].ExpectedIndex })
	return pairs
}

// recordOrder returns the visiting order of the records: file order, or
// canonical JSON order when ignoreOrder is set.
func recordOrder(records []Record, ignoreOrder bool) []int {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	if ignoreOrder {
		keys := make([]string, len(records))
		for i, rec := range records {
			keys[i] = compactJSON(rec)
		}
		sort.SliceStable(order, func(i, j int) bool { return keys[order[i]] < keys[order[j]] })
	}
	return order
}

func compilePatterns(cc *config.CompareConfig) []*regexp.Regexp {
	if cc == nil {
		return nil
	}
	patterns := make([]*regexp.Regexp, 0, len(cc.ExcludePaths))
	for _, expr := range cc.ExcludePaths {
		re, err := regexp.Compile(expr)
		if err != nil {
			// Rejected at config load; reaching this means the validator was
			// fed an unvalidated config.
			logging.Warn(subsystem, "Ignoring bad exclude pattern %q: %v", expr, err)
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}

// scrubRecords returns deep copies with every field whose path matches one of
// the patterns removed. Paths take the form root[2].process.pid or
// root[0].hops[1].timestamp, and patterns are unanchored.
func scrubRecords(records []Record, patterns []*regexp.Regexp) []Record {
	if len(patterns) == 0 {
		return records
	}
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = Record(scrubMap(map[string]any(rec), fmt.Sprintf("root[%d]", i), patterns))
	}
	return out
}

func scrubMap(m map[string]any, path string, patterns []*regexp.Regexp) map[string]any {
	out := make(map[string]any, len(m))
	for key, child := range m {
		childPath := path + "." + key
		if matchesAny(childPath, patterns) {
			continue
		}
		out[key] = scrubValue(child, childPath, patterns)
	}
	return out
}

func scrubValue(v any, path string, patterns []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		return scrubMap(t, path, patterns)
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = scrubValue(child, fmt.Sprintf("%s[%d]", path, i), patterns)
		}
		return out
	default:
		return v
	}
}

func matchesAny(path string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// indentLines prefixes every line of a rendered diff for embedding in the
// diagnostics dump.
func indentLines(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
