package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/model"
)

func TestDefaultRegistryCompiles(t *testing.T) {
	p := Default()
	require.NotNil(t, p.QuestionMarker)
	assert.NotEmpty(t, p.Intros)
	assert.NotEmpty(t, p.VisualKeywords)
	assert.NotEmpty(t, p.FallbackTitles)
}

func TestQuestionMarkerMatches(t *testing.T) {
	p := Default()
	tests := []struct {
		text string
		num  string
	}{
		{"QUESTÃO 01", "1"},
		{"questao 15", "15"},
		{"Questão: 3", "3"},
		{"QUESTION 2", "2"},
		{"Pergunta 7.", "7"},
	}
	for _, tt := range tests {
		m := p.QuestionMarker.FindStringSubmatch(tt.text)
		require.NotNil(t, m, "no match for %q", tt.text)
		assert.Equal(t, tt.num, m[1], "number for %q", tt.text)
	}
}

func TestQuestionMarkerRejectsEmbedded(t *testing.T) {
	p := Default()
	assert.Nil(t, p.QuestionMarker.FindStringSubmatch("requestão 1 is not a marker"))
}

func TestIntroCountWord(t *testing.T) {
	p := Default()
	text := "Leia o texto a seguir para responder as duas próximas questões."
	var matched *Intro
	var count int
	for i := range p.Intros {
		m := p.Intros[i].Re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		matched = &p.Intros[i]
		if matched.CountGroup > 0 && matched.CountGroup < len(m) {
			n, ok := p.CountFromWord(m[matched.CountGroup])
			require.True(t, ok)
			count = n
		}
		break
	}
	require.NotNil(t, matched)
	assert.Equal(t, model.ContextText, matched.Type)
	assert.Equal(t, 2, count)
}

func TestCountFromWord(t *testing.T) {
	p := Default()
	tests := []struct {
		word string
		want int
		ok   bool
	}{
		{"duas", 2, true},
		{"três", 3, true},
		{"three", 3, true},
		{"4", 4, true},
		{"muitas", 0, false},
	}
	for _, tt := range tests {
		n, ok := p.CountFromWord(tt.word)
		assert.Equal(t, tt.ok, ok, tt.word)
		assert.Equal(t, tt.want, n, tt.word)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse([]byte("question_markers: []"))
	assert.Error(t, err)
}
