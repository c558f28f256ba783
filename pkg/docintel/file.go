package docintel

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// LoadFile reads a pre-fetched analyze result from disk. Both the bare
// result and the full operation envelope are accepted.
func LoadFile(path string) (*AnalyzeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "docintel: read %s", path)
	}
	return ParseResult(data)
}

// ParseResult decodes an analyze result from raw JSON.
func ParseResult(data []byte) (*AnalyzeResult, error) {
	var env AnalyzeResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "docintel: unmarshal result")
	}
	if env.AnalyzeResult != nil {
		return env.AnalyzeResult, nil
	}

	var result AnalyzeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrap(err, "docintel: unmarshal result")
	}
	if result.Content == "" && len(result.Paragraphs) == 0 {
		return nil, eris.New("docintel: result carries no content")
	}
	return &result, nil
}
