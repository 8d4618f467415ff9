// Package scoring aggregates per-criterion oracle judgments into one weighted
// quality score with a derived recommendation band and review status.
package scoring

import (
	"fmt"
	"math"

	"github.com/stackprep/curator/internal/types"
)

// Criteria holds the seven independently judged quality criteria, each on a
// 1-10 scale.
type Criteria struct {
	InterviewFrequency   int `json:"interview_frequency" yaml:"interview_frequency"`
	PracticalRelevance   int `json:"practical_relevance" yaml:"practical_relevance"`
	ConceptDepth         int `json:"concept_depth" yaml:"concept_depth"`
	IndustryDemand       int `json:"industry_demand" yaml:"industry_demand"`
	DifficultyAppropriate int `json:"difficulty_appropriate" yaml:"difficulty_appropriate"`
	QuestionClarity      int `json:"question_clarity" yaml:"question_clarity"`
	AnswerQuality        int `json:"answer_quality" yaml:"answer_quality"`
}

// Validate checks that every criterion is on the 1-10 scale.
func (c Criteria) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"interview_frequency", c.InterviewFrequency},
		{"practical_relevance", c.PracticalRelevance},
		{"concept_depth", c.ConceptDepth},
		{"industry_demand", c.IndustryDemand},
		{"difficulty_appropriate", c.DifficultyAppropriate},
		{"question_clarity", c.QuestionClarity},
		{"answer_quality", c.AnswerQuality},
	}
	for _, check := range checks {
		if check.value < 1 || check.value > 10 {
			return fmt.Errorf("%s must be between 1 and 10 (got %d)", check.name, check.value)
		}
	}
	return nil
}

// Weights assigns the relative importance of each criterion. Weights must sum
// to 1.0.
type Weights struct {
	InterviewFrequency   float64 `yaml:"interview_frequency"`
	PracticalRelevance   float64 `yaml:"practical_relevance"`
	ConceptDepth         float64 `yaml:"concept_depth"`
	IndustryDemand       float64 `yaml:"industry_demand"`
	DifficultyAppropriate float64 `yaml:"difficulty_appropriate"`
	QuestionClarity      float64 `yaml:"question_clarity"`
	AnswerQuality        float64 `yaml:"answer_quality"`
}

// DefaultWeights returns the canonical criterion weights.
func DefaultWeights() Weights {
	return Weights{
		InterviewFrequency:    0.25,
		PracticalRelevance:    0.20,
		ConceptDepth:          0.15,
		IndustryDemand:        0.15,
		DifficultyAppropriate: 0.10,
		QuestionClarity:       0.10,
		AnswerQuality:         0.05,
	}
}

// Validate checks that the weights sum to 1.0 within floating-point tolerance
// and that none is negative.
func (w Weights) Validate() error {
	values := []float64{
		w.InterviewFrequency, w.PracticalRelevance, w.ConceptDepth,
		w.IndustryDemand, w.DifficultyAppropriate, w.QuestionClarity, w.AnswerQuality,
	}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("weights cannot be negative (got %.3f)", v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0 (got %.4f)", sum)
	}
	return nil
}

// WeightedScore computes round(10 × Σ criterionᵢ × weightᵢ), a deterministic
// value in [10,100] for valid criteria, monotonic non-decreasing in each
// criterion.
func WeightedScore(c Criteria, w Weights) int {
	sum := float64(c.InterviewFrequency)*w.InterviewFrequency +
		float64(c.PracticalRelevance)*w.PracticalRelevance +
		float64(c.ConceptDepth)*w.ConceptDepth +
		float64(c.IndustryDemand)*w.IndustryDemand +
		float64(c.DifficultyAppropriate)*w.DifficultyAppropriate +
		float64(c.QuestionClarity)*w.QuestionClarity +
		float64(c.AnswerQuality)*w.AnswerQuality
	return int(math.Round(10 * sum))
}

// Score computes the weighted score with the default weights.
func Score(c Criteria) int {
	return WeightedScore(c, DefaultWeights())
}

// Band is the general recommendation band for a score.
type Band string

const (
	BandExcellent        Band = "excellent"         // >= 80
	BandGood             Band = "good"              // 60-79
	BandNeedsImprovement Band = "needs_improvement" // 40-59
	BandNeedsReview      Band = "needs_review"      // < 40, retire candidate
)

// Banding cutoffs. AutoApproveThreshold is deliberately NOT one of the band
// boundaries: the auto-approval gate is a stricter, separate check used only
// when deciding to publish without operator review. Do not conflate the two.
const (
	ExcellentCutoff        = 80
	GoodCutoff             = 60
	NeedsImprovementCutoff = 40

	AutoApproveThreshold = 90
)

// BandFor maps a score to its general recommendation band.
func BandFor(score int) Band {
	switch {
	case score >= ExcellentCutoff:
		return BandExcellent
	case score >= GoodCutoff:
		return BandGood
	case score >= NeedsImprovementCutoff:
		return BandNeedsImprovement
	default:
		return BandNeedsReview
	}
}

// ReviewStatusFor derives the triage review status from the canonical score.
// It is recomputed wholesale on every score write, never patched.
func ReviewStatusFor(score int) types.ReviewStatus {
	switch {
	case score >= ExcellentCutoff:
		return types.ReviewApproved
	case score >= NeedsImprovementCutoff:
		return types.ReviewNeedsImprovement
	default:
		return types.ReviewRetireCandidate
	}
}

// AutoApproved reports whether the score clears the stricter auto-approval
// gate.
func AutoApproved(score int) bool {
	return score >= AutoApproveThreshold
}
