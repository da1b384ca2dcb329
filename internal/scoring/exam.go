package scoring

import "math"

// ScoreExamSubmission applies one graded submission to an exam instance
// question. Credit is awarded only for the improvement over the best
// fractional score seen so far on this attempt lineage: earlier partial
// credit stays banked and is never re-earned.
func ScoreExamSubmission(state QuestionState, submissionScore float64, cfg QuestionConfig) Result {
	attemptTotal := AttemptValue(state.PointsListOriginal, state.NumberAttempts)
	attemptAuto := attemptTotal - cfg.MaxManualPoints

	improvement := math.Max(0, submissionScore-state.HighestSubmissionScore)
	autoPoints := state.AutoPoints + attemptAuto*improvement

	// A perfect score on a full-value attempt lands exactly on the ceiling,
	// immune to rounding in the incremental arithmetic.
	if submissionScore >= 1 && attemptAuto == cfg.MaxAutoPoints {
		autoPoints = cfg.MaxAutoPoints
	}

	correct := submissionScore >= 1
	complete := (correct && cfg.MaxManualPoints == 0) || len(state.PointsList) <= 1

	highest := math.Max(submissionScore, state.HighestSubmissionScore)
	remaining := RemainingSchedule(state.PointsListOriginal, state.NumberAttempts+1, cfg.MaxManualPoints, highest)

	var currentValue *float64
	if !complete && len(remaining) > 0 {
		next := remaining[0]
		currentValue = &next
	}

	status := StatusIncorrect
	switch {
	case complete:
		status = StatusComplete
	case correct:
		status = StatusCorrect
	}

	return Result{
		Open:                   !complete,
		Status:                 status,
		AutoPoints:             autoPoints,
		HighestSubmissionScore: highest,
		CurrentValue:           currentValue,
		PointsList:             remaining,
		VariantsPointsList:     state.VariantsPointsList,
		NumberAttempts:         state.NumberAttempts + 1,
	}
}
