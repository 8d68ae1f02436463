package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDirectivePrependsBaselinePreserve(t *testing.T) {
	d := BuildDirective(DirectiveInput{Style: "zen", PreserveExtra: []string{"old olive tree", "The roofline"}})
	require.GreaterOrEqual(t, len(d.Preserve), len(BaselinePreserve))
	assert.Equal(t, BaselinePreserve, d.Preserve[:len(BaselinePreserve)])
	assert.Equal(t, "old olive tree", d.Preserve[len(d.Preserve)-1])
	assert.Len(t, d.Preserve, len(BaselinePreserve)+1)
}

func TestBuildDirectiveEmptyInputStillPreserves(t *testing.T) {
	d := BuildDirective(DirectiveInput{})
	assert.NotEmpty(t, d.Preserve)
	assert.Equal(t, "modern", d.StyleTag)
	assert.Equal(t, DefaultLighting, d.Lighting)
	assert.Contains(t, d.Notes, "modern style")
}

func TestBuildDirectiveKeepsListsDisjoint(t *testing.T) {
	d := BuildDirective(DirectiveInput{
		Style:   "mediterranean",
		Include: []string{"rectangular pool", "Fountain", "lawn"},
		Exclude: []string{"fountain"},
	})
	assert.Equal(t, []string{"rectangular pool", "lawn"}, d.Include)
	assert.Equal(t, []string{"fountain"}, d.Forbidden)
}

func TestBuildDirectiveUnknownStyleFallsBack(t *testing.T) {
	d := BuildDirective(DirectiveInput{Style: "baroque"})
	m := BuildDirective(DirectiveInput{Style: "modern"})
	assert.Equal(t, m.StyleDescription, d.StyleDescription)
	assert.Equal(t, "modern", d.StyleTag)
}

func TestBuildDirectiveIsDeterministic(t *testing.T) {
	in := DirectiveInput{
		Style:         "tropical",
		Include:       []string{"palms", "natural pool"},
		Exclude:       []string{"lighting"},
		PreserveExtra: []string{"stone wall"},
		Request:       "palme e piscina naturale, niente luci",
	}
	first := BuildDirective(in)
	second := BuildDirective(in)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Prompt(), second.Prompt())
}

func TestPromptRendersClauses(t *testing.T) {
	d := BuildDirective(DirectiveInput{
		Style:   "mediterranean",
		Include: []string{"rectangular pool"},
		Exclude: []string{"fountain"},
		Request: "voglio una piscina rettangolare, niente fontana",
	})
	p := d.Prompt()
	assert.Contains(t, p, "- the main house body")
	assert.Contains(t, p, "- rectangular pool")
	assert.Contains(t, p, "must not include:\n- fountain")
	assert.Contains(t, p, `Customer's original request: "voglio una piscina rettangolare, niente fontana"`)
	assert.Contains(t, p, "terracotta")
}

func TestPromptOmitsRequestClauseWhenEmpty(t *testing.T) {
	p := BuildDirective(DirectiveInput{Include: []string{"lawn"}}).Prompt()
	assert.NotContains(t, p, "Customer's original request")
	assert.NotContains(t, p, "must not include")
}

func TestRefinePromptWrapsFeedback(t *testing.T) {
	p := RefinePrompt("  più alberi sul lato destro ")
	assert.Contains(t, p, "più alberi sul lato destro\n")
	assert.Contains(t, p, "Change ONLY what the feedback asks for.")
}

func TestInterpretationPromptListsCategories(t *testing.T) {
	p := InterpretationPrompt("solo prato", "", []string{"pool", "lawn"})
	assert.Contains(t, p, "not chosen yet")
	assert.Contains(t, p, "(pool, lawn)")
	assert.Contains(t, p, `"solo prato"`)
}
