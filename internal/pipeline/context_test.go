package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/model"
)

func TestContextBuilder_Build(t *testing.T) {
	layout := &model.LayoutResult{Content: "texto"}

	pctx, err := NewContextBuilder().
		WithText("texto").
		WithLayout(layout).
		WithUserKey("user@example.com").
		WithFilename("prova.pdf").
		WithDocumentID("doc-9").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "texto", pctx.Text())
	assert.Same(t, layout, pctx.Layout())
	assert.Equal(t, "user@example.com", pctx.UserKey())
	assert.Equal(t, "prova.pdf", pctx.Filename())
	assert.Equal(t, "doc-9", pctx.DocumentID())
}

func TestContextBuilder_GeneratesDocumentID(t *testing.T) {
	pctx, err := NewContextBuilder().
		WithText("texto").
		WithLayout(&model.LayoutResult{Content: "texto"}).
		Build()
	require.NoError(t, err)
	assert.NotEmpty(t, pctx.DocumentID())
}

func TestContextBuilder_RequiresLayoutAndText(t *testing.T) {
	_, err := NewContextBuilder().WithText("texto").Build()
	assert.Error(t, err)

	_, err = NewContextBuilder().WithLayout(&model.LayoutResult{}).Build()
	assert.Error(t, err)
}
