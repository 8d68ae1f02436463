package prompts

import (
	"fmt"
	"strings"

	"gardenDesignAi/internal/lexicon"
	"gardenDesignAi/internal/orderedset"
)

// DefaultLighting is used when the session does not ask for anything else.
const DefaultLighting = "golden hour, late afternoon"

// BaselinePreserve lists what every render keeps untouched, ahead of any session items.
var BaselinePreserve = []string{
	"the main house body",
	"window and door openings",
	"the roofline",
	"the foundations",
}

// DirectiveInput carries the session fields a render depends on.
type DirectiveInput struct {
	Style         string
	Include       []string
	Exclude       []string
	PreserveExtra []string
	Lighting      string
	Notes         string
	Request       string
}

// Directive is the complete instruction for one render call.
type Directive struct {
	Preserve         []string `json:"preserve"`
	Include          []string `json:"include"`
	Forbidden        []string `json:"forbidden"`
	StyleTag         string   `json:"style_tag"`
	StyleDescription string   `json:"style_description"`
	Lighting         string   `json:"lighting"`
	Notes            string   `json:"notes"`
	Request          string   `json:"request,omitempty"`
}

// BuildDirective resolves the style, merges the preserve list and keeps inclusions and
// exclusions disjoint. An item present in both lists is forbidden.
func BuildDirective(in DirectiveInput) Directive {
	style := lexicon.ResolveStyle(in.Style)

	preserve := orderedset.New(BaselinePreserve...)
	preserve.Add(in.PreserveExtra...)

	forbidden := orderedset.New(in.Exclude...)
	include := orderedset.New()
	for _, item := range in.Include {
		if !forbidden.Contains(item) {
			include.Add(item)
		}
	}

	lighting := strings.TrimSpace(in.Lighting)
	if lighting == "" {
		lighting = DefaultLighting
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = fmt.Sprintf("%s style with a focus on professional aesthetics", style.Tag)
	}

	return Directive{
		Preserve:         preserve.Items(),
		Include:          include.Items(),
		Forbidden:        forbidden.Items(),
		StyleTag:         style.Tag,
		StyleDescription: style.Description,
		Lighting:         lighting,
		Notes:            notes,
		Request:          strings.TrimSpace(in.Request),
	}
}

// Prompt renders the directive as the text sent with the garden photo.
func (d Directive) Prompt() string {
	var b strings.Builder
	b.WriteString("Edit this photo of a garden or outdoor space.\n\n")
	b.WriteString("ABSOLUTE RULES:\n\n")

	b.WriteString("1. PRESERVE WITHOUT ANY CHANGE:\n")
	writeList(&b, d.Preserve)

	b.WriteString("\n2. ADD ONLY THESE ELEMENTS (NOTHING ELSE):\n")
	if len(d.Include) == 0 {
		b.WriteString("- a general landscape improvement consistent with the style\n")
	} else {
		writeList(&b, d.Include)
	}

	b.WriteString("\n3. NEVER ADD:\n")
	if len(d.Forbidden) > 0 {
		b.WriteString("The customer explicitly said the garden must not include:\n")
		writeList(&b, d.Forbidden)
	}
	b.WriteString("- fountains, gazebos, pergolas or barbecue areas unless listed in point 2\n")
	b.WriteString("- extra outdoor furniture or decorative elements that were not requested\n")

	fmt.Fprintf(&b, "\n4. STYLE: %s\n", d.StyleDescription)
	fmt.Fprintf(&b, "\n5. QUALITY: professional photorealistic rendering, natural light (%s)\n", d.Lighting)

	b.WriteString("\nDETAILED DESCRIPTION:\n")
	fmt.Fprintf(&b, "Turn this garden into a %s.\n", d.StyleDescription)
	fmt.Fprintf(&b, "Add ONLY the elements in point 2. %s.\n", d.Notes)
	if d.Request != "" {
		fmt.Fprintf(&b, "Customer's original request: %q\n", d.Request)
	}
	b.WriteString("The render must look like a professional photograph taken with a full-frame camera.\n")

	b.WriteString("\nFINAL INSTRUCTIONS:\n")
	b.WriteString("1. The house MUST stay IDENTICAL.\n")
	b.WriteString("2. Add ONLY the elements listed in point 2.\n")
	b.WriteString("3. Do NOT invent extra elements; follow the list literally.\n")
	b.WriteString("4. Keep the same camera angle and perspective as the original photo.\n")
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
