package docintel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/model"
)

const sampleResult = `{
	"status": "succeeded",
	"analyzeResult": {
		"modelId": "prebuilt-layout",
		"apiVersion": "2024-02-29",
		"content": "QUESTÃO 01\nWhat is 2+2?",
		"paragraphs": [
			{"content": "ESCOLA MODELO", "role": "pageHeader", "boundingRegions": [{"pageNumber": 1, "polygon": [0,0,1,0,1,1,0,1]}]},
			{"content": "QUESTÃO 01\nWhat is 2+2?", "boundingRegions": [{"pageNumber": 1, "polygon": [0,2,1,2,1,3,0,3]}]}
		],
		"pages": [{"pageNumber": 1, "width": 8.5, "height": 11, "unit": "inch"}],
		"figures": [{"id": "1.1", "boundingRegions": [{"pageNumber": 1, "polygon": [1,1,2,1,2,2,1,2]}]}]
	}
}`

func TestAnalyze_SubmitAndPoll(t *testing.T) {
	polls := 0
	var opPath = "/operations/op-1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			assert.Contains(t, r.URL.Path, "documentModels/prebuilt-layout")
			assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
			w.Header().Set("Operation-Location", "http://"+r.Host+opPath)
			w.WriteHeader(http.StatusAccepted)
		case r.URL.Path == opPath:
			polls++
			w.Header().Set("Content-Type", "application/json")
			if polls == 1 {
				w.Write([]byte(`{"status":"running"}`))
				return
			}
			w.Write([]byte(sampleResult))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", WithPollInterval(time.Millisecond), WithRateLimit(1000))
	result, err := c.Analyze(context.Background(), []byte("%PDF-fake"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "prebuilt-layout", result.ModelID)
	assert.Len(t, result.Paragraphs, 2)
	assert.Equal(t, 2, polls)
}

func TestAnalyze_FailedOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Operation-Location", "http://"+r.Host+"/op")
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(`{"status":"failed","error":{"code":"InvalidContent","message":"corrupt file"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithPollInterval(time.Millisecond), WithRateLimit(1000))
	_, err := c.Analyze(context.Background(), []byte("junk"), "application/pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidContent")
}

func TestAnalyze_NonRetryableSubmitError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithRateLimit(1000))
	_, err := c.Analyze(context.Background(), []byte("junk"), "application/pdf")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoadFile_Envelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleResult), 0644))

	result, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "prebuilt-layout", result.ModelID)
	assert.Len(t, result.Figures, 1)
}

func TestParseResult_Bare(t *testing.T) {
	bare := `{"modelId":"prebuilt-layout","content":"texto","paragraphs":[{"content":"texto"}]}`
	result, err := ParseResult([]byte(bare))
	require.NoError(t, err)
	assert.Equal(t, "texto", result.Content)
}

func TestParseResult_Empty(t *testing.T) {
	_, err := ParseResult([]byte(`{}`))
	assert.Error(t, err)
}

func TestToLayout(t *testing.T) {
	result, err := ParseResult([]byte(sampleResult))
	require.NoError(t, err)

	layout := result.ToLayout()

	assert.Equal(t, "QUESTÃO 01\nWhat is 2+2?", layout.Content)
	require.Len(t, layout.Paragraphs, 2)
	assert.Equal(t, model.RolePageHeader, layout.Paragraphs[0].Role)
	assert.Equal(t, 1, layout.Paragraphs[0].PageNumber)
	require.Len(t, layout.Pages, 1)
	assert.InDelta(t, 11.0, layout.Pages[0].Height, 0.001)
	require.Len(t, layout.Figures, 1)
	require.NotNil(t, layout.Figures[0].FirstRegion())
	assert.Equal(t, 1, layout.Figures[0].FirstRegion().PageNumber)
}
