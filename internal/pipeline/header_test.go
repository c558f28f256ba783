package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/model"
)

func headerContext(t *testing.T, lines ...string) *ProcessingContext {
	t.Helper()
	pctx, err := NewContextBuilder().
		WithText(strings.Join(lines, "\n")).
		WithLayout(&model.LayoutResult{Content: strings.Join(lines, "\n")}).
		Build()
	require.NoError(t, err)
	return pctx
}

func TestHeaderParsing(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  model.DocumentMeta
	}{
		{
			name: "full header",
			lines: []string{
				"COLÉGIO SANTA MARIA",
				"Disciplina: Português",
				"Série: 7º ano",
				"Professora: Ana Souza",
				"Avaliação bimestral - 2024",
				"Nome: ______________________",
			},
			want: model.DocumentMeta{
				School:          "COLÉGIO SANTA MARIA",
				Subject:         "Português",
				Grade:           "7º ano",
				Teacher:         "Ana Souza",
				Year:            "2024",
				HasStudentField: true,
			},
		},
		{
			name:  "grade inline without label",
			lines: []string{"Prova de Matemática - 6º ano"},
			want:  model.DocumentMeta{Grade: "6º ano"},
		},
		{
			name:  "english labels",
			lines: []string{"Springfield High School", "Subject: History", "Teacher: J. Smith"},
			want:  model.DocumentMeta{School: "Springfield High School", Subject: "History", Teacher: "J. Smith"},
		},
		{
			name:  "no header at all",
			lines: []string{"QUESTÃO 01", "Quanto é 2+2?"},
			want:  model.DocumentMeta{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := NewHeaderParsingStage()
			meta, err := stage.Execute(context.Background(), headerContext(t, tt.lines...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta)
		})
	}
}

func TestHeaderParsing_OnlyScansTopOfDocument(t *testing.T) {
	lines := make([]string, 0, 30)
	for i := 0; i < 25; i++ {
		lines = append(lines, "linha de enchimento")
	}
	lines = append(lines, "Disciplina: Química")

	meta, err := NewHeaderParsingStage().Execute(context.Background(), headerContext(t, lines...))
	require.NoError(t, err)
	assert.Empty(t, meta.Subject)
}

func TestHeaderParsing_PrefersTaggedHeaderParagraphs(t *testing.T) {
	layout := &model.LayoutResult{
		Paragraphs: []model.Paragraph{
			{Content: "ESCOLA MUNICIPAL DA PAZ", Role: model.RolePageHeader},
			{Content: "corpo do documento"},
		},
	}
	pctx, err := NewContextBuilder().WithText("corpo do documento").WithLayout(layout).Build()
	require.NoError(t, err)

	meta, err := NewHeaderParsingStage().Execute(context.Background(), pctx)
	require.NoError(t, err)
	assert.Equal(t, "ESCOLA MUNICIPAL DA PAZ", meta.School)
}
