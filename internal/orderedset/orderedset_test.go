package orderedset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsFirstSpellingAndOrder(t *testing.T) {
	s := New("Piscina", "prato", "  piscina ", "", "Pergola")
	assert.Equal(t, []string{"Piscina", "prato", "Pergola"}, s.Items())
	assert.Equal(t, 0, s.Add("PRATO"))
	assert.Equal(t, 1, s.Add("luci"))
	assert.Equal(t, 4, s.Len())
}

func TestRemoveReindexes(t *testing.T) {
	s := New("a", "b", "c")
	require.True(t, s.Remove("B"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, s.Items())
	assert.True(t, s.Contains("c"))
	s.Add("b")
	assert.Equal(t, []string{"a", "c", "b"}, s.Items())
}

func TestRemoveFunc(t *testing.T) {
	s := New("rectangular pool", "lawn", "small pool")
	n := s.RemoveFunc(func(item string) bool { return len(item) > 5 })
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"lawn"}, s.Items())
}

func TestZeroValueAndJSON(t *testing.T) {
	var s Set
	assert.False(t, s.Contains("x"))
	raw, err := json.Marshal(&s)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	s.Add("x")
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
