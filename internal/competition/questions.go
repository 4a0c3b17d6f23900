package competition

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Question is a single prompt in a competition. Index is 1-based and assigned
// by the bank. Points zero means "use the session default".
type Question struct {
	Index  int
	Prompt string
	Answer string
	Points int
}

// Matches reports whether text is an accepted answer. Comparison ignores
// leading/trailing whitespace and letter case.
func (q Question) Matches(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(q.Answer))
}

// Bank is an immutable, ordered set of questions shared by sessions.
type Bank struct {
	questions []Question
}

// NewBank copies qs and assigns 1-based indexes in order.
func NewBank(qs []Question) *Bank {
	out := make([]Question, len(qs))
	copy(out, qs)
	for i := range out {
		out[i].Index = i + 1
	}
	return &Bank{questions: out}
}

// DefaultBank returns the built-in question set used when no questions file
// is configured.
func DefaultBank() *Bank {
	return NewBank([]Question{
		{Prompt: "What is the capital of France?", Answer: "Paris"},
		{Prompt: "What is 2 + 2?", Answer: "4"},
		{Prompt: "Who wrote 'Romeo and Juliet'?", Answer: "Shakespeare"},
	})
}

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// Get returns the question with the given 1-based index.
func (b *Bank) Get(index int) (Question, bool) {
	if index < 1 || index > len(b.questions) {
		return Question{}, false
	}
	return b.questions[index-1], true
}

type bankFile struct {
	Questions []struct {
		Prompt string `yaml:"prompt"`
		Answer string `yaml:"answer"`
		Points int    `yaml:"points"`
	} `yaml:"questions"`
}

// LoadBank reads a YAML question file. Unknown keys are rejected so typos in
// the file surface at startup instead of as silently broken questions.
func LoadBank(path string) (*Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f bankFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse questions file %s: %w", path, err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("questions file %s: no questions defined", path)
	}
	qs := make([]Question, 0, len(f.Questions))
	for i, q := range f.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("questions file %s: question %d has an empty prompt", path, i+1)
		}
		if strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("questions file %s: question %d has an empty answer", path, i+1)
		}
		if q.Points < 0 {
			return nil, fmt.Errorf("questions file %s: question %d has negative points", path, i+1)
		}
		qs = append(qs, Question{Prompt: q.Prompt, Answer: q.Answer, Points: q.Points})
	}
	return NewBank(qs), nil
}
