package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/extract"
	"github.com/provalab/exam-cli/internal/model"
)

// mockExtractor, mockCategorizer, mockBuilder, and mockAssociator record
// invocations so tests can assert which stages ran.
type mockExtractor struct {
	calls int
	imgs  []model.ExtractedImage
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, _ *model.LayoutResult) ([]model.ExtractedImage, error) {
	m.calls++
	return m.imgs, m.err
}

type mockCategorizer struct {
	calls int
	err   error
}

func (m *mockCategorizer) Categorize(_ context.Context, _ *model.LayoutResult, imgs []model.ExtractedImage) ([]model.ExtractedImage, []model.ExtractedImage, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return nil, imgs, nil
}

type mockBuilder struct {
	calls  int
	blocks []model.ContextBlock
	err    error
}

func (m *mockBuilder) Build(_ context.Context, _ *model.LayoutResult, _ []model.ContextBlock, _ []model.ExtractedImage) ([]model.ContextBlock, error) {
	m.calls++
	return m.blocks, m.err
}

type mockAssociator struct {
	calls int
	err   error
}

func (m *mockAssociator) Associate(_ context.Context, qs []model.Question, bs []model.ContextBlock, _ []model.ExtractedImage) ([]model.Question, []model.ContextBlock, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	out := make([]model.Question, len(qs))
	copy(out, qs)
	for i := range out {
		out[i].HasVisualRef = true
	}
	return out, bs, nil
}

func examLayout() *model.LayoutResult {
	return &model.LayoutResult{
		Paragraphs: []model.Paragraph{
			{Content: "ESCOLA ESTADUAL DOM PEDRO II", Role: model.RolePageHeader, PageNumber: 1},
			{Content: "Disciplina: Matemática", PageNumber: 1},
			{Content: "QUESTÃO 01\nWhat is 2+2?\n(A) 3\n(B) 4\n(C) 5", PageNumber: 1},
			{Content: "QUESTÃO 02\nQuanto é 3+3?\n(A) 5\n(B) 6\n(C) 7", PageNumber: 1},
		},
		Pages: []model.Page{{PageNumber: 1, Width: 8.5, Height: 11}},
	}
}

func testPipeline(ext *mockExtractor, cat *mockCategorizer, bld *mockBuilder, asc *mockAssociator) *Pipeline {
	return New(extract.NewService(nil), ext, cat, bld, asc, nil, Options{MaxStageFailures: 3})
}

func TestPipeline_HappyPath(t *testing.T) {
	ext := &mockExtractor{}
	cat := &mockCategorizer{}
	bld := &mockBuilder{}
	asc := &mockAssociator{}
	p := testPipeline(ext, cat, bld, asc)

	doc, err := p.Run(context.Background(), Input{
		Layout:     examLayout(),
		UserKey:    "teacher@school.example",
		Filename:   "prova.pdf",
		DocumentID: "doc-1",
	})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "teacher@school.example", doc.UserKey)
	assert.Equal(t, "ESCOLA ESTADUAL DOM PEDRO II", doc.Meta.School)
	assert.Equal(t, "Matemática", doc.Meta.Subject)

	require.Len(t, doc.Questions, 2)
	assert.Equal(t, 1, doc.Questions[0].Number)
	assert.Equal(t, "What is 2+2?", doc.Questions[0].Statement)
	assert.Equal(t, []model.Alternative{{Letter: "A", Text: "3"}, {Letter: "B", Text: "4"}, {Letter: "C", Text: "5"}}, doc.Questions[0].Alternatives)
	assert.Nil(t, doc.Questions[0].ContextID)

	// The associator ran and annotated the questions.
	assert.True(t, doc.Questions[0].HasVisualRef)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 1, bld.calls)
	assert.Equal(t, 1, asc.calls)
	assert.False(t, doc.ProcessedAt.IsZero())
}

func TestPipeline_QuestionExtractionFailureShortCircuits(t *testing.T) {
	bld := &mockBuilder{}
	asc := &mockAssociator{}
	p := testPipeline(&mockExtractor{}, &mockCategorizer{}, bld, asc)

	// No question markers anywhere in the text.
	layout := &model.LayoutResult{
		Paragraphs: []model.Paragraph{{Content: "Apenas um texto corrido sem perguntas."}},
	}
	doc, err := p.Run(context.Background(), Input{Layout: layout, Filename: "vazio.pdf"})

	require.Error(t, err)
	assert.Nil(t, doc)

	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Question Extraction", failure.Stage)
	assert.Contains(t, failure.Message, "no questions")

	// Downstream stages never ran.
	assert.Equal(t, 0, bld.calls)
	assert.Equal(t, 0, asc.calls)
}

func TestPipeline_PrepareFailsOnNilLayout(t *testing.T) {
	p := testPipeline(&mockExtractor{}, &mockCategorizer{}, &mockBuilder{}, &mockAssociator{})

	_, err := p.Run(context.Background(), Input{Layout: nil})

	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Context Preparation", failure.Stage)
}

func TestPipeline_ImageAnalysisFailureFailsRun(t *testing.T) {
	cat := &mockCategorizer{err: eris.New("vision service unavailable")}
	p := testPipeline(&mockExtractor{}, cat, &mockBuilder{}, &mockAssociator{})

	_, err := p.Run(context.Background(), Input{Layout: examLayout()})

	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Image Analysis", failure.Stage)
}

func TestPipeline_FigureAssociationDegradesSoftly(t *testing.T) {
	asc := &mockAssociator{err: eris.New("association service down")}
	p := testPipeline(&mockExtractor{}, &mockCategorizer{}, &mockBuilder{}, asc)

	doc, err := p.Run(context.Background(), Input{Layout: examLayout(), DocumentID: "doc-2"})

	require.NoError(t, err)
	require.Len(t, doc.Questions, 2)
	// Unannotated extraction output survives.
	assert.False(t, doc.Questions[0].HasVisualRef)
}

func TestPipeline_ContextBuildingFailureFailsRun(t *testing.T) {
	bld := &mockBuilder{err: eris.New("figure service down")}
	p := testPipeline(&mockExtractor{}, &mockCategorizer{}, bld, &mockAssociator{})

	_, err := p.Run(context.Background(), Input{Layout: examLayout()})

	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Context Building", failure.Stage)
}

func TestPipeline_Deterministic(t *testing.T) {
	p := testPipeline(&mockExtractor{}, &mockCategorizer{}, &mockBuilder{}, &mockAssociator{})
	in := Input{Layout: examLayout(), DocumentID: "doc-3", Filename: "prova.pdf"}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, first.ContextBlocks, second.ContextBlocks)
	assert.Equal(t, first.Meta, second.Meta)
}

func TestPipeline_ResetClosesBreakers(t *testing.T) {
	cat := &mockCategorizer{err: eris.New("down")}
	p := testPipeline(&mockExtractor{}, cat, &mockBuilder{}, &mockAssociator{})
	in := Input{Layout: examLayout()}

	// Trip the image-analysis breaker.
	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background(), in)
		require.Error(t, err)
	}
	assert.Equal(t, 3, cat.calls)

	// Open: the categorizer is no longer invoked.
	_, err := p.Run(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, 3, cat.calls)

	p.Reset()
	cat.err = nil
	doc, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
