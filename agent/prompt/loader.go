package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

var (
	//go:embed template/coach.txt
	coachRaw string

	//go:embed template/advisor.txt
	advisorRaw string

	//go:embed template/evaluation.txt
	evaluationRaw string
)

// PromptSet holds loaded prompt content. All prompts are Go templates.
type PromptSet struct {
	Coach      string
	Advisor    string
	Evaluation string
}

// Overrides names files that replace the embedded prompts. Empty paths keep
// the embedded version.
type Overrides struct {
	CoachPath      string `envconfig:"COACH_PROMPT_PATH" split_words:"true"`
	AdvisorPath    string `envconfig:"ADVISOR_PROMPT_PATH" split_words:"true"`
	EvaluationPath string `envconfig:"EVALUATION_PROMPT_PATH" split_words:"true"`
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Coach:      strings.TrimSpace(coachRaw),
		Advisor:    strings.TrimSpace(advisorRaw),
		Evaluation: strings.TrimSpace(evaluationRaw),
	}
}

// Load returns the embedded prompts with any file overrides applied.
func Load(o Overrides) (PromptSet, error) {
	set := LoadPromptSet()
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{o.CoachPath, &set.Coach},
		{o.AdvisorPath, &set.Advisor},
		{o.EvaluationPath, &set.Evaluation},
	} {
		path := strings.TrimSpace(f.path)
		if path == "" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return PromptSet{}, fmt.Errorf("read prompt %s: %w", path, err)
		}
		*f.dst = strings.TrimSpace(string(raw))
	}
	return set, set.Validate()
}

func (p PromptSet) Validate() error {
	switch {
	case p.Coach == "":
		return fmt.Errorf("%w: coach", contractx.ErrPromptMissing)
	case p.Advisor == "":
		return fmt.Errorf("%w: advisor", contractx.ErrPromptMissing)
	case p.Evaluation == "":
		return fmt.Errorf("%w: evaluation", contractx.ErrPromptMissing)
	}
	return nil
}
