// Package intent turns free-form garden requests into structured element lists.
package intent

import (
	"context"
	"slices"
	"strings"

	"gardenDesignAi/internal/lexicon"
	"gardenDesignAi/internal/orderedset"
)

const summaryLimit = 100

// Result is the structured reading of one user message.
type Result struct {
	Elements   []string `json:"elements"`
	Excluded   []string `json:"excluded"`
	OutOfScope []string `json:"out_of_scope,omitempty"`
	Existing   []string `json:"existing,omitempty"`
	Summary    string   `json:"summary"`
	// Degraded is set when the model answer could not be parsed and the raw text was used instead.
	Degraded bool `json:"degraded,omitempty"`
}

// Interpreter extracts elements to add and leave out from free text, given the chosen style.
type Interpreter interface {
	Interpret(ctx context.Context, text, style string) (Result, error)
}

// KeywordInterpreter scans text against the lexicon category table. It never reports exclusions.
type KeywordInterpreter struct{}

// NewKeywordInterpreter returns the deterministic keyword strategy.
func NewKeywordInterpreter() KeywordInterpreter {
	return KeywordInterpreter{}
}

// Interpret implements Interpreter.
func (KeywordInterpreter) Interpret(_ context.Context, text, _ string) (Result, error) {
	found := lexicon.MatchCategories(text)
	elements := make([]string, 0, len(found))
	labels := make([]string, 0, len(found))
	for _, c := range found {
		elements = append(elements, c.Tag)
		labels = append(labels, c.Label)
	}
	return Result{
		Elements: elements,
		Excluded: []string{},
		Summary:  strings.Join(labels, ", "),
	}, nil
}

// Fallback is the degraded reading used when a model answer is unusable: the whole text becomes
// a single element.
func Fallback(text string) Result {
	text = strings.TrimSpace(text)
	var elements []string
	if text != "" {
		elements = []string{text}
	}
	return Result{
		Elements: elements,
		Excluded: []string{},
		Summary:  truncate(text, summaryLimit),
		Degraded: true,
	}
}

// Reconcile enforces the result invariants on a raw reading of text:
//   - existing items appear in neither list,
//   - an "only" marker excludes every known category the elements do not cover,
//   - elements and exclusions are disjoint, the exclusion winning.
func Reconcile(text string, r Result) Result {
	existing := orderedset.New(r.Existing...)
	excluded := orderedset.New(r.Excluded...)
	elements := orderedset.New(r.Elements...)

	if lexicon.HasOnlyMarker(text) {
		covered := map[string]bool{}
		for _, item := range append(elements.Items(), existing.Items()...) {
			for _, c := range lexicon.MatchCategories(item) {
				covered[c.Tag] = true
			}
			if c, ok := lexicon.CategoryOf(item); ok {
				covered[c.Tag] = true
			}
		}
		for _, c := range lexicon.Categories() {
			if !covered[c.Tag] && !containsSame(excluded.Items(), c.Tag) {
				excluded.Add(c.Tag)
			}
		}
	}

	for _, e := range existing.Items() {
		elements.RemoveFunc(func(item string) bool { return SameItem(item, e) })
		excluded.RemoveFunc(func(item string) bool { return SameItem(item, e) })
	}
	for _, x := range excluded.Items() {
		elements.RemoveFunc(func(item string) bool { return SameItem(item, x) })
	}

	out := Result{
		Elements:   nonNil(elements.Items()),
		Excluded:   nonNil(excluded.Items()),
		OutOfScope: orderedset.New(r.OutOfScope...).Items(),
		Existing:   existing.Items(),
		Summary:    strings.TrimSpace(r.Summary),
		Degraded:   r.Degraded,
	}
	if out.Summary == "" {
		out.Summary = truncate(strings.Join(out.Elements, ", "), summaryLimit)
	}
	return out
}

// SameItem treats two items as the same when their words match, or when one's words appear in
// order inside the other's and both name the same categories. "rectangular pool" is the same item
// as "pool", while "pergola with climbing plants" is not the same item as "plants".
func SameItem(a, b string) bool {
	na, nb := lexicon.Normalize(a), lexicon.Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	pa, pb := " "+na+" ", " "+nb+" "
	if !strings.Contains(pa, pb) && !strings.Contains(pb, pa) {
		return false
	}
	return slices.Equal(categoryTags(na), categoryTags(nb))
}

func categoryTags(text string) []string {
	var tags []string
	for _, c := range lexicon.MatchCategories(text) {
		tags = append(tags, c.Tag)
	}
	return tags
}

func containsSame(items []string, candidate string) bool {
	for _, item := range items {
		if SameItem(item, candidate) {
			return true
		}
		if c, ok := lexicon.CategoryOf(item); ok && c.Tag == candidate {
			return true
		}
	}
	return false
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
