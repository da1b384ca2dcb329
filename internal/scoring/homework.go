package scoring

import "math"

// ScoreHomeworkSubmission applies one graded submission to a homework
// instance question. Credit accrues per variant: the last entry of the
// variants points list is the variant currently being worked on and may only
// move upward; once a variant has banked its full value, the next submission
// opens a new entry.
func ScoreHomeworkSubmission(state QuestionState, submissionScore float64, cfg QuestionConfig, constantQuestionValue bool) Result {
	correct := submissionScore >= 1

	// An incorrect answer is valued against the base rate. The grown
	// current_value only applies while the correct streak continues.
	var currentValue float64
	if correct {
		if state.CurrentValue != nil {
			currentValue = *state.CurrentValue
		}
	} else {
		currentValue = cfg.InitPoints
	}

	currentAutoValue := currentValue - cfg.MaxManualPoints
	initAutoPoints := cfg.InitPoints - cfg.MaxManualPoints

	variants := append([]float64(nil), state.VariantsPointsList...)
	varPointsNew := submissionScore * currentAutoValue
	if n := len(variants); n > 0 && variants[n-1] < initAutoPoints {
		if variants[n-1] < varPointsNew {
			variants[n-1] = varPointsNew
		}
	} else {
		variants = append(variants, varPointsNew)
	}

	autoPoints := SumCapped(variants, cfg.MaxAutoPoints)

	var nextValue *float64
	switch {
	case !correct:
		value := cfg.InitPoints
		nextValue = &value
	case constantQuestionValue:
		if state.CurrentValue != nil {
			value := *state.CurrentValue
			nextValue = &value
		}
	default:
		// Correct answers grow the stake for the next variant, capped at the
		// question's overall maximum.
		if state.CurrentValue != nil {
			grown := math.Min(*state.CurrentValue+cfg.InitPoints, cfg.MaxPoints)
			nextValue = &grown
		}
	}

	status := state.Status
	switch {
	case autoPoints >= cfg.MaxAutoPoints && cfg.MaxManualPoints == 0:
		status = StatusComplete
	case correct && state.Status != StatusComplete:
		status = StatusCorrect
	case state.Status == StatusUnanswered || state.Status == StatusSaved:
		status = StatusIncorrect
	}

	return Result{
		Open:                   true,
		Status:                 status,
		AutoPoints:             autoPoints,
		HighestSubmissionScore: math.Max(submissionScore, state.HighestSubmissionScore),
		CurrentValue:           nextValue,
		PointsList:             nil,
		VariantsPointsList:     variants,
		NumberAttempts:         state.NumberAttempts + 1,
	}
}
