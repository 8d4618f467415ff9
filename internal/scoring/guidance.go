package scoring

import "strings"

// Guidance is the structured improvement output attached to every score.
// Consumers enqueue targeted follow-up work from it rather than blindly
// regenerating the question.
type Guidance struct {
	QuestionIssues       []string `json:"question_issues,omitempty"`
	AnswerIssues         []string `json:"answer_issues,omitempty"`
	MissingTopics        []string `json:"missing_topics,omitempty"`
	SuggestedAdditions   []string `json:"suggested_additions,omitempty"`
	DifficultyAdjustment string   `json:"difficulty_adjustment,omitempty"` // "easier", "harder", or ""
}

// IsEmpty reports whether the guidance carries no actionable content.
func (g Guidance) IsEmpty() bool {
	return len(g.QuestionIssues) == 0 &&
		len(g.AnswerIssues) == 0 &&
		len(g.MissingTopics) == 0 &&
		len(g.SuggestedAdditions) == 0 &&
		g.DifficultyAdjustment == ""
}

// Render flattens the guidance into the human-readable suggestions text
// stored on the question.
func (g Guidance) Render() string {
	var parts []string
	appendSection := func(label string, items []string) {
		if len(items) > 0 {
			parts = append(parts, label+": "+strings.Join(items, "; "))
		}
	}
	appendSection("Question issues", g.QuestionIssues)
	appendSection("Answer issues", g.AnswerIssues)
	appendSection("Missing topics", g.MissingTopics)
	appendSection("Suggested additions", g.SuggestedAdditions)
	if g.DifficultyAdjustment != "" {
		parts = append(parts, "Difficulty adjustment: "+g.DifficultyAdjustment)
	}
	return strings.Join(parts, "\n")
}
