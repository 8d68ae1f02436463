// Package lexicon holds the fixed vocabularies used to classify free text without a model call:
// garden styles, element categories and the trigger words that drive the conversation.
package lexicon

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Style is a canonical garden style and the phrases that select it.
type Style struct {
	Tag         string
	Label       string
	Description string
	Keywords    []string
}

// Category is a canonical garden element the renderer knows how to add or leave out.
type Category struct {
	Tag      string
	Label    string
	Keywords []string
}

// DefaultStyle is used whenever a tag is unknown.
const DefaultStyle = "modern"

// Keywords match at the start of a word, so stems such as "mediterran" cover both
// "mediterraneo" and "mediterranean".
var styles = []Style{
	{
		Tag:         "modern",
		Label:       "Moderno",
		Description: "modern minimalist garden with clean lines, concrete and corten steel surfaces, architectural plants and a restrained palette",
		Keywords:    []string{"modern", "minimal", "contemporane"},
	},
	{
		Tag:         "mediterranean",
		Label:       "Mediterraneo",
		Description: "mediterranean garden with terracotta, olive trees, lavender, wooden pergolas and natural gravel",
		Keywords:    []string{"mediterran", "italian", "toscan", "tuscan"},
	},
	{
		Tag:         "tropical",
		Label:       "Tropicale",
		Description: "lush tropical garden with palms, exotic plants, a natural-looking pool edge and exotic hardwood",
		Keywords:    []string{"tropic", "esotic", "exotic", "palm"},
	},
	{
		Tag:         "zen",
		Label:       "Zen",
		Description: "japanese zen garden with raked gravel, moss, stone lanterns, bamboo and calm water features",
		Keywords:    []string{"zen", "giappones", "japanese", "japones", "oriental"},
	},
	{
		Tag:         "english",
		Label:       "Inglese",
		Description: "romantic english cottage garden with roses, deep flower borders, a green lawn and climbing arches",
		Keywords:    []string{"ingles", "english", "romantic", "cottage"},
	},
	{
		Tag:         "contemporary",
		Label:       "Contemporaneo outdoor living",
		Description: "contemporary outdoor living garden with an outdoor kitchen, fire pit and built-in seating",
		Keywords:    []string{"outdoor living", "fire pit", "cucina estern", "outdoor kitchen", "lounge", "contemporary"},
	},
}

// The "only" expansion in the intent interpreter uses this table as its universe of known categories.
var categories = []Category{
	{Tag: "pool", Label: "piscina", Keywords: []string{"piscin", "pool", "vasca"}},
	{Tag: "lawn", Label: "prato", Keywords: []string{"prato", "prati", "erba", "erbos", "lawn", "grass", "turf"}},
	{Tag: "plants", Label: "piante", Keywords: []string{"piant", "fior", "alber", "siep", "vegetazion", "arbust", "aiuol", "plant", "flower", "tree", "hedge", "shrub"}},
	{Tag: "pathways", Label: "vialetti", Keywords: []string{"vialett", "sentier", "percors", "camminament", "path", "walkway"}},
	{Tag: "pergola", Label: "pergola", Keywords: []string{"pergol", "gazebo", "tettoi", "canopy"}},
	{Tag: "fountain", Label: "fontana", Keywords: []string{"fontan", "fountain", "cascat", "waterfall", "acqua", "water"}},
	{Tag: "lighting", Label: "illuminazione", Keywords: []string{"illuminazion", "luci", "luce", "lampion", "farett", "light", "lamp"}},
	{Tag: "barbecue", Label: "barbecue", Keywords: []string{"bbq", "barbecue", "grill", "cucina", "kitchen"}},
	{Tag: "seating", Label: "area relax e sedute", Keywords: []string{"sedut", "divan", "panchin", "salott", "relax", "lounge", "seating", "bench", "sofa"}},
	{Tag: "furniture", Label: "arredi da esterno", Keywords: []string{"arred", "mobil", "tavol", "sedia", "sedie", "furniture", "table", "chair"}},
}

var (
	// Trigger stems match at the start of a word; stems of up to shortTrigger letters must match
	// a whole word.
	generateTriggers = []string{"genera", "generate", "ok", "okay", "proced", "proceed", "vai", "go", "crea", "create", "render", "inizia", "start", "perfett", "perfect", "si", "yes"}
	restartTriggers  = []string{"rigenera", "regenerate", "nuov", "new", "ricomin", "restart"}
	onlyMarkers      = []string{"solo", "soltanto", "solamente", "unicamente", "only", "just"}
	negations        = []string{"non", "not"}
)

const shortTrigger = 3

// Styles returns the style table in declaration order.
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// Categories returns the element category table in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// StyleByTag looks a style up by canonical tag.
func StyleByTag(tag string) (Style, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, s := range styles {
		if s.Tag == tag {
			return s, true
		}
	}
	return Style{}, false
}

// ResolveStyle returns the style for tag, falling back to DefaultStyle.
func ResolveStyle(tag string) Style {
	if s, ok := StyleByTag(tag); ok {
		return s
	}
	s, _ := StyleByTag(DefaultStyle)
	return s
}

// DescribeStyle returns the long-form description used in render directives.
func DescribeStyle(tag string) string {
	return ResolveStyle(tag).Description
}

// MatchStyle returns the first style, in declaration order, with a keyword in text.
func MatchStyle(text string) (Style, bool) {
	norm := Normalize(text)
	if norm == "" {
		return Style{}, false
	}
	for _, s := range styles {
		if matchesAny(norm, s.Keywords) {
			return s, true
		}
	}
	return Style{}, false
}

// MatchCategories returns every category with a keyword in text, in table order.
func MatchCategories(text string) []Category {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	var out []Category
	for _, c := range categories {
		if matchesAny(norm, c.Keywords) {
			out = append(out, c)
		}
	}
	return out
}

// CategoryOf returns the first category text refers to. A bare tag or label counts as a match.
func CategoryOf(text string) (Category, bool) {
	clean := Normalize(text)
	for _, c := range categories {
		if clean == c.Tag || clean == Normalize(c.Label) {
			return c, true
		}
	}
	if found := MatchCategories(text); len(found) > 0 {
		return found[0], true
	}
	return Category{}, false
}

// IsGenerateTrigger reports whether text asks to start rendering.
func IsGenerateTrigger(text string) bool {
	return hasTrigger(Normalize(text), generateTriggers)
}

// IsRestartTrigger reports whether text asks to render again from scratch.
func IsRestartTrigger(text string) bool {
	return hasTrigger(Normalize(text), restartTriggers)
}

// HasOnlyMarker reports whether text restricts the request to the listed elements. A negated
// marker ("non solo", "not only") widens the request instead and does not count.
func HasOnlyMarker(text string) bool {
	tokens := strings.Fields(Normalize(text))
	for i, token := range tokens {
		if !slices.Contains(onlyMarkers, token) {
			continue
		}
		if i > 0 && slices.Contains(negations, tokens[i-1]) {
			continue
		}
		return true
	}
	return false
}

// Normalize lowercases text, folds accents and collapses anything that is not a letter or digit
// into single spaces.
func Normalize(text string) string {
	folded, _, err := transform.String(accentFolder(), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(mapped), " ")
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// matchesAny reports whether a keyword occurs at a word boundary in normalized text.
func matchesAny(normalized string, keywords []string) bool {
	padded := " " + normalized
	for _, kw := range keywords {
		if strings.Contains(padded, " "+Normalize(kw)) {
			return true
		}
	}
	return false
}

func hasTrigger(normalized string, stems []string) bool {
	for _, token := range strings.Fields(normalized) {
		for _, stem := range stems {
			if token == stem || (len(stem) > shortTrigger && strings.HasPrefix(token, stem)) {
				return true
			}
		}
	}
	return false
}
