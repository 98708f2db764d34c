package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyseDocument_FiltersStopWordsAndStems(t *testing.T) {
	a := New(nil)
	result := a.AnalyseDocument("the quick brown fox jumps")

	_, hasThe := result.Positions["the"]
	assert.False(t, hasThe, "stop word 'the' must be dropped")

	positions, ok := result.Positions["quick"]
	assert.True(t, ok)
	assert.Equal(t, []uint32{0}, positions)

	assert.Equal(t, 4, result.TokenCount)
}

func TestAnalyseDocument_PositionsAreRetainedTokenIndex(t *testing.T) {
	a := New(nil)
	result := a.AnalyseDocument("a quick red fox jumps")

	// "a" is a stop word, so "quick" is retained position 0.
	assert.Equal(t, []uint32{0}, result.Positions["quick"])
	assert.Equal(t, []uint32{3}, result.Positions["jump"])
}

func TestAnalyseDocument_RepeatedWordGetsMultiplePositions(t *testing.T) {
	a := New(nil)
	result := a.AnalyseDocument("run and run again")
	assert.Equal(t, []uint32{0, 1}, result.Positions["run"])
}

func TestAnalyseTerm(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "jump", a.AnalyseTerm("Jumps"))
}

func TestIsStopWord(t *testing.T) {
	a := New(nil)
	assert.True(t, a.IsStopWord("The"))
	assert.False(t, a.IsStopWord("fox"))
}

func TestNew_CustomStopWords(t *testing.T) {
	a := New([]string{"fox"})
	assert.True(t, a.IsStopWord("fox"))
	assert.False(t, a.IsStopWord("the"))
}
