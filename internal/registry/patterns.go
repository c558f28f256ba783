// Package registry loads the extraction pattern registry: question marker
// keywords, reading-introduction phrases, number words, and the fallback
// title allow-list. Defaults are embedded; deployments tuned for other
// document sets can point the pipeline at an override file.
package registry

import (
	_ "embed"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/textutil"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

type introSpec struct {
	Pattern      string `yaml:"pattern"`
	CountGroup   int    `yaml:"count_group"`
	DefaultCount int    `yaml:"default_count"`
	Type         string `yaml:"type"`
}

type patternsFile struct {
	QuestionMarkers       []string       `yaml:"question_markers"`
	VisualKeywords        []string       `yaml:"visual_keywords"`
	ReadingIntros         []introSpec    `yaml:"reading_intros"`
	NumberWords           map[string]int `yaml:"number_words"`
	FallbackTitles        []string       `yaml:"fallback_titles"`
	ImageReferencePhrases []string       `yaml:"image_reference_phrases"`
}

// Intro is a compiled reading-introduction pattern.
type Intro struct {
	Re *regexp.Regexp
	// CountGroup is the capture group holding the question-count word, or 0.
	CountGroup int
	// DefaultCount applies when no count word is present. Zero means the
	// count must be inferred from document structure.
	DefaultCount int
	Type         model.ContextType
}

// Patterns is the compiled registry used by the extraction heuristics.
type Patterns struct {
	// QuestionMarker matches "QUESTÃO 01" style markers; capture group 1 is
	// the question number.
	QuestionMarker *regexp.Regexp
	Intros         []Intro

	// The remaining lists are stored folded (lowercase, diacritics removed).
	VisualKeywords []string
	NumberWords    map[string]int
	FallbackTitles []string
	ImageRefs      []string
}

// Parse compiles a registry from YAML bytes.
func Parse(data []byte) (*Patterns, error) {
	var pf patternsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal patterns")
	}
	if len(pf.QuestionMarkers) == 0 {
		return nil, eris.New("registry: no question markers defined")
	}

	marker, err := regexp.Compile(`(?i)(?:^|\s)(?:` + strings.Join(pf.QuestionMarkers, "|") + `)\s*[:.]?\s*0*(\d{1,3})`)
	if err != nil {
		return nil, eris.Wrap(err, "registry: compile question marker")
	}

	p := &Patterns{
		QuestionMarker: marker,
		NumberWords:    make(map[string]int, len(pf.NumberWords)),
	}
	for _, spec := range pf.ReadingIntros {
		re, err := regexp.Compile(`(?i)` + spec.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: compile intro pattern %q", spec.Pattern)
		}
		ctype := model.ContextType(spec.Type)
		if ctype == "" {
			ctype = model.ContextText
		}
		p.Intros = append(p.Intros, Intro{
			Re:           re,
			CountGroup:   spec.CountGroup,
			DefaultCount: spec.DefaultCount,
			Type:         ctype,
		})
	}
	for w, n := range pf.NumberWords {
		p.NumberWords[textutil.Fold(w)] = n
	}
	for _, kw := range pf.VisualKeywords {
		p.VisualKeywords = append(p.VisualKeywords, textutil.Fold(kw))
	}
	for _, t := range pf.FallbackTitles {
		p.FallbackTitles = append(p.FallbackTitles, textutil.Fold(t))
	}
	for _, ph := range pf.ImageReferencePhrases {
		p.ImageRefs = append(p.ImageRefs, textutil.Fold(ph))
	}
	return p, nil
}

// LoadFile reads a registry override from disk.
func LoadFile(path string) (*Patterns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}
	return Parse(data)
}

var (
	defaultOnce     sync.Once
	defaultPatterns *Patterns
	defaultErr      error
)

// Default returns the embedded registry. The embedded YAML is fixed at
// build time, so a parse failure is a programming error.
func Default() *Patterns {
	defaultOnce.Do(func() {
		defaultPatterns, defaultErr = Parse(defaultPatternsYAML)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultPatterns
}

// CountFromWord resolves a count word ("duas", "three", "3") to an integer.
func (p *Patterns) CountFromWord(word string) (int, bool) {
	folded := textutil.Fold(strings.TrimSpace(word))
	if n, ok := p.NumberWords[folded]; ok {
		return n, true
	}
	if n, err := strconv.Atoi(folded); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}
