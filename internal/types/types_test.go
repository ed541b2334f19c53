package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary_RejectsDuplicates(t *testing.T) {
	_, err := NewVocabulary[Phase]("A", "B", "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"A"`)
}

func TestVocabulary_Order(t *testing.T) {
	v := MustVocabulary[State]("SP", "MG", "BA")

	assert.Equal(t, 0, v.Index("SP"))
	assert.Equal(t, 2, v.Index("BA"))
	assert.Equal(t, -1, v.Index("RJ"))
	assert.True(t, v.Contains("MG"))
	assert.False(t, v.Contains("mg"))
	assert.Equal(t, 3, v.Len())

	xs := []State{"ZZ", "BA", "SP", "AA", "MG"}
	v.Sort(xs)
	assert.Equal(t, []State{"SP", "MG", "BA", "AA", "ZZ"}, xs)
}

func TestVocabulary_ValuesIsCopy(t *testing.T) {
	v := MustVocabulary[State]("SP", "MG")
	vals := v.Values()
	vals[0] = "XX"
	assert.Equal(t, []State{"SP", "MG"}, v.Values())
}

func TestDefaultVocabularies(t *testing.T) {
	assert.Equal(t, 27, DefaultStates.Len())
	assert.Equal(t, 14, DefaultPhases.Len())
	for _, p := range TitleholderPhases {
		assert.True(t, DefaultPhases.Contains(p), p)
		assert.True(t, IsTitleholderPhase(p))
	}
	assert.False(t, IsTitleholderPhase(PhaseRequerimentoPesquisa))
}

func TestProcessID(t *testing.T) {
	assert.Equal(t, "800123/2010", ProcessID(" 800123", "2010 "))
}

func TestDedupe(t *testing.T) {
	in := []Record{
		{ID: "1/2000", Company: "A", AreaHa: 1},
		{ID: "2/2000", Company: "B"},
		{ID: "1/2000", Company: "A", AreaHa: 99},
	}
	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].AreaHa)
	assert.Equal(t, "2/2000", out[1].ID)
}
