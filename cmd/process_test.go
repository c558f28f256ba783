package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/config"
	"github.com/provalab/exam-cli/internal/store"
)

// analyzeResultFixture is a minimal layout-analysis result with a header,
// a subject line, and two marked questions.
const analyzeResultFixture = `{
  "status": "succeeded",
  "analyzeResult": {
    "modelId": "prebuilt-layout",
    "content": "",
    "paragraphs": [
      {"content": "ESCOLA ESTADUAL DOM PEDRO II", "role": "pageHeader", "boundingRegions": [{"pageNumber": 1}]},
      {"content": "Disciplina: Matemática", "boundingRegions": [{"pageNumber": 1}]},
      {"content": "QUESTÃO 01\nQuanto é 7 x 8?\n(A) 54\n(B) 56\n(C) 58", "boundingRegions": [{"pageNumber": 1}]},
      {"content": "QUESTÃO 02\nQuanto é 9 x 6?\n(A) 52\n(B) 54\n(C) 56", "boundingRegions": [{"pageNumber": 1}]}
    ],
    "pages": [{"pageNumber": 1, "width": 8.5, "height": 11, "unit": "inch"}]
  }
}`

// noQuestionsFixture parses fine but carries no question markers.
const noQuestionsFixture = `{
  "status": "succeeded",
  "analyzeResult": {
    "modelId": "prebuilt-layout",
    "content": "",
    "paragraphs": [
      {"content": "Apenas um aviso sem perguntas.", "boundingRegions": [{"pageNumber": 1}]}
    ],
    "pages": [{"pageNumber": 1, "width": 8.5, "height": 11, "unit": "inch"}]
  }
}`

// newTestEnv points the global config at a temp SQLite store and builds
// the pipeline environment.
func newTestEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:        "sqlite",
			SQLitePath:    filepath.Join(t.TempDir(), "exam.db"),
			CacheTTLHours: 1,
		},
		Pipeline: config.PipelineConfig{MaxStageFailures: 3, TimeoutSecs: 30},
		Tagger:   config.TaggerConfig{Mode: "keyword"},
		Batch:    config.BatchConfig{MaxConcurrentDocuments: 2},
		Export:   config.ExportConfig{SheetName: "Questões"},
	}
	processNoCache = false

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessDocument(t *testing.T) {
	env := newTestEnv(t)
	path := writeFixture(t, "prova.json", analyzeResultFixture)

	doc, err := processDocument(context.Background(), env, path, "teacher-1")
	require.NoError(t, err)

	assert.Equal(t, "teacher-1", doc.UserKey)
	assert.Equal(t, "prova.json", doc.Filename)
	assert.Equal(t, "ESCOLA ESTADUAL DOM PEDRO II", doc.Meta.School)
	assert.Equal(t, "Matemática", doc.Meta.Subject)
	require.Len(t, doc.Questions, 2)
	assert.Equal(t, "Quanto é 7 x 8?", doc.Questions[0].Statement)

	saved, err := env.Store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.QuestionCount(), saved.QuestionCount())
}

func TestProcessDocument_CacheHit(t *testing.T) {
	env := newTestEnv(t)
	path := writeFixture(t, "prova.json", analyzeResultFixture)

	first, err := processDocument(context.Background(), env, path, "teacher-1")
	require.NoError(t, err)

	second, err := processDocument(context.Background(), env, path, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestProcessDocument_NoQuestions(t *testing.T) {
	env := newTestEnv(t)
	path := writeFixture(t, "aviso.json", noQuestionsFixture)

	_, err := processDocument(context.Background(), env, path, "teacher-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Question Extraction")
}

func TestProcessDocument_NonJSONWithoutProvider(t *testing.T) {
	env := newTestEnv(t)
	path := writeFixture(t, "prova.pdf", "%PDF-1.4 not really")

	_, err := processDocument(context.Background(), env, path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider endpoint")
}

func TestProcessBatch(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(analyzeResultFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(noQuestionsFixture), 0o644))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	// The unparseable-as-exam file fails individually without aborting.
	require.NoError(t, processBatch(context.Background(), env, files, 0, 2, "teacher-2"))

	docs, err := env.Store.ListDocuments(context.Background(), store.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.json", docs[0].Filename)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("x/prova.PDF"))
	assert.Equal(t, "image/jpeg", contentTypeFor("scan.jpg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob.bin"))
}
