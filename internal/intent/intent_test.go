package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gardenDesignAi/internal/llm"
)

type fakeClient struct {
	answer   string
	err      error
	messages []llm.ChatMessage
	temp     float64
}

func (f *fakeClient) ChatCompletion(_ context.Context, messages []llm.ChatMessage, temperature float64) (string, error) {
	f.messages = messages
	f.temp = temperature
	return f.answer, f.err
}

func assertDisjoint(t *testing.T, r Result) {
	t.Helper()
	for _, e := range r.Elements {
		for _, x := range r.Excluded {
			assert.False(t, SameItem(e, x), "%q is both added and excluded", e)
		}
	}
}

func TestModelScenarioPoolWithoutFountain(t *testing.T) {
	client := &fakeClient{answer: `{"elements":["rectangular pool"],"excluded":["fountain"],"summary":"Piscina rettangolare, niente fontana"}`}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "voglio una piscina rettangolare, niente fontana", "mediterranean")
	require.NoError(t, err)

	assert.Equal(t, []string{"rectangular pool"}, r.Elements)
	assert.Equal(t, []string{"fountain"}, r.Excluded)
	assert.False(t, r.Degraded)
	assert.Equal(t, 0.3, client.temp)
	require.Len(t, client.messages, 1)
	assert.Contains(t, client.messages[0].Content, "CHOSEN STYLE: mediterranean")
	assertDisjoint(t, r)
}

func TestModelScenarioOnlyExpandsExclusions(t *testing.T) {
	client := &fakeClient{answer: "```json\n{\"elements\":[\"lawn\",\"plants\"],\"excluded\":[],\"summary\":\"solo prato e piante\"}\n```"}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "solo prato e piante", "english")
	require.NoError(t, err)

	assert.Equal(t, []string{"lawn", "plants"}, r.Elements)
	assert.Subset(t, r.Excluded, []string{"pathways", "pergola", "fountain", "lighting", "barbecue", "seating"})
	assert.NotContains(t, r.Excluded, "lawn")
	assert.NotContains(t, r.Excluded, "plants")
	assertDisjoint(t, r)
}

func TestModelScenarioUnparsableFallsBack(t *testing.T) {
	client := &fakeClient{answer: "Certo! Aggiungerò una bella piscina."}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "una piscina grande ", "modern")
	require.NoError(t, err)

	assert.Equal(t, []string{"una piscina grande"}, r.Elements)
	assert.Empty(t, r.Excluded)
	assert.Equal(t, "una piscina grande", r.Summary)
	assert.True(t, r.Degraded)
}

func TestModelAnswerMissingElementsFallsBack(t *testing.T) {
	client := &fakeClient{answer: `{"summary":"boh"}`}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "qualcosa", "modern")
	require.NoError(t, err)
	assert.True(t, r.Degraded)
}

func TestModelExtractsObjectFromProse(t *testing.T) {
	client := &fakeClient{answer: `Ecco il risultato: {"elements":["soft lighting"],"excluded":[]} spero vada bene`}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "luci soffuse", "zen")
	require.NoError(t, err)
	assert.Equal(t, []string{"soft lighting"}, r.Elements)
	assert.Equal(t, "soft lighting", r.Summary)
}

func TestModelDropsExistingItems(t *testing.T) {
	client := &fakeClient{answer: `{"elements":["pool","lawn"],"excluded":["pool"],"existing":["pool"],"summary":"prato"}`}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "non voglio la piscina perché c'è già, voglio un prato", "modern")
	require.NoError(t, err)
	assert.Equal(t, []string{"lawn"}, r.Elements)
	assert.Empty(t, r.Excluded)
	assert.Equal(t, []string{"pool"}, r.Existing)
}

func TestModelConflictExclusionWins(t *testing.T) {
	client := &fakeClient{answer: `{"elements":["Fountain","lawn"],"excluded":["fountain"],"out_of_scope":["second floor"]}`}
	r, err := NewModelInterpreter(client, "").Interpret(context.Background(), "prato, fontana no, e un secondo piano", "modern")
	require.NoError(t, err)
	assert.Equal(t, []string{"lawn"}, r.Elements)
	assert.Equal(t, []string{"fountain"}, r.Excluded)
	assert.Equal(t, []string{"second floor"}, r.OutOfScope)
	assertDisjoint(t, r)
}

func TestModelUpstreamErrorIsReturned(t *testing.T) {
	client := &fakeClient{err: errors.New("gemini status 503: overloaded")}
	_, err := NewModelInterpreter(client, "").Interpret(context.Background(), "piscina", "modern")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestModelNotConfigured(t *testing.T) {
	var m *ModelInterpreter
	_, err := m.Interpret(context.Background(), "x", "")
	require.Error(t, err)
}

func TestKeywordInterpreter(t *testing.T) {
	r, err := NewKeywordInterpreter().Interpret(context.Background(), "Vorrei una fontana con cascata e qualche faretto", "zen")
	require.NoError(t, err)
	assert.Equal(t, []string{"fountain", "lighting"}, r.Elements)
	assert.Empty(t, r.Excluded)
	assert.Equal(t, "fontana, illuminazione", r.Summary)
}

func TestKeywordInterpreterNoMatch(t *testing.T) {
	r, err := NewKeywordInterpreter().Interpret(context.Background(), "non so ancora", "zen")
	require.NoError(t, err)
	assert.Empty(t, r.Elements)
}

func TestReconcileOnlyRespectsExistingCategories(t *testing.T) {
	r := Reconcile("ho già la piscina, voglio solo un prato", Result{
		Elements: []string{"lawn"},
		Existing: []string{"piscina"},
	})
	assert.NotContains(t, r.Excluded, "pool")
	assert.Contains(t, r.Excluded, "fountain")
}

func TestReconcileIgnoresNegatedOnly(t *testing.T) {
	r := Reconcile("voglio non solo la piscina ma anche un prato", Result{Elements: []string{"pool", "lawn"}})
	assert.Equal(t, []string{"pool", "lawn"}, r.Elements)
	assert.Empty(t, r.Excluded)
}

func TestSameItem(t *testing.T) {
	assert.True(t, SameItem("Fountain", "fountain"))
	assert.True(t, SameItem("rectangular pool", "pool"))
	assert.True(t, SameItem("soft lighting", "lighting"))
	assert.False(t, SameItem("pergola with climbing plants", "plants"))
	assert.False(t, SameItem("plants", "pergola with climbing plants"))
	assert.False(t, SameItem("olive trees", "hedge"))
	assert.False(t, SameItem("", "pool"))
}

func TestReconcileExclusionKeepsCompoundElement(t *testing.T) {
	r := Reconcile("una pergola con rampicanti, niente piante", Result{
		Elements: []string{"pergola with climbing plants", "lawn"},
		Excluded: []string{"plants"},
	})
	assert.Equal(t, []string{"pergola with climbing plants", "lawn"}, r.Elements)
	assert.Equal(t, []string{"plants"}, r.Excluded)
}

func TestFallbackTruncatesSummary(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "prato "
	}
	r := Fallback(long)
	assert.Len(t, []rune(r.Summary), 100)
	assert.True(t, r.Degraded)
}
