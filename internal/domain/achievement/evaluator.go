package achievement

import (
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Stats Snapshot
// ═══════════════════════════════════════════════════════════════════════════

// Stats is an immutable snapshot of the counters requirements are evaluated
// against. The engine builds one from the progression aggregate after every
// stat-changing operation.
type Stats struct {
	TotalXP        int
	Level          int
	StreakCurrent  int
	TotalQuestions int
	PerfectQuizzes int

	// RecentAnswers holds correctness of the most recent answers, newest
	// last. Feeds AccuracyOverWindow requirements.
	RecentAnswers []bool
}

// accuracyOver returns accuracy over the last windowSize answers; ok is
// false while the window is not yet full.
func (s Stats) accuracyOver(windowSize int) (float64, bool) {
	if windowSize <= 0 || len(s.RecentAnswers) < windowSize {
		return 0, false
	}
	window := s.RecentAnswers[len(s.RecentAnswers)-windowSize:]
	correct := 0
	for _, c := range window {
		if c {
			correct++
		}
	}
	return float64(correct) / float64(windowSize), true
}

// ═══════════════════════════════════════════════════════════════════════════
// Evaluator
// ═══════════════════════════════════════════════════════════════════════════

// Evaluation is the result of checking one achievement against a snapshot.
type Evaluation struct {
	// Progress is completion toward the requirement in [0, 1].
	Progress float64

	// Unlocked is true when the requirement holds.
	Unlocked bool
}

// Evaluator evaluates achievement requirements against stats snapshots.
// It is stateless and safe for concurrent use.
type Evaluator struct {
	catalog Catalog
}

// NewEvaluator creates an evaluator over the given catalog.
func NewEvaluator(catalog Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate checks a single achievement against the snapshot. It is a pure
// function of its inputs.
func (e *Evaluator) Evaluate(stats Stats, a Achievement) (Evaluation, error) {
	switch req := a.Requirement.(type) {
	case MinTotalXP:
		return thresholdEvaluation(stats.TotalXP, req.Value), nil
	case MinLevel:
		return thresholdEvaluation(stats.Level, req.Value), nil
	case MinStreak:
		return thresholdEvaluation(stats.StreakCurrent, req.Value), nil
	case MinQuestions:
		return thresholdEvaluation(stats.TotalQuestions, req.Value), nil
	case MinPerfectQuizzes:
		return thresholdEvaluation(stats.PerfectQuizzes, req.Value), nil
	case AccuracyOverWindow:
		accuracy, full := stats.accuracyOver(req.WindowSize)
		if !full {
			// Progress reflects how much of the window has been
			// filled; the requirement cannot hold yet.
			filled := float64(len(stats.RecentAnswers)) / float64(req.WindowSize)
			return Evaluation{Progress: clamp01(filled)}, nil
		}
		return Evaluation{
			Progress: clamp01(accuracy / req.Threshold),
			Unlocked: accuracy >= req.Threshold,
		}, nil
	default:
		return Evaluation{}, shared.ErrUnknownRequirement
	}
}

// Scan returns the ids of achievements the snapshot unlocks that are not in
// alreadyEarned, in catalog order. Called after every stat-changing
// operation; re-running against unchanged stats returns nothing new once the
// grants are recorded.
func (e *Evaluator) Scan(stats Stats, alreadyEarned map[string]bool) ([]string, error) {
	var unlocked []string
	for _, a := range e.catalog.All() {
		if alreadyEarned[a.ID] {
			continue
		}
		eval, err := e.Evaluate(stats, a)
		if err != nil {
			return nil, err
		}
		if eval.Unlocked {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked, nil
}

func thresholdEvaluation(current, target int) Evaluation {
	if target <= 0 {
		return Evaluation{Progress: 1, Unlocked: true}
	}
	return Evaluation{
		Progress: clamp01(float64(current) / float64(target)),
		Unlocked: current >= target,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
