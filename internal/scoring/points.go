package scoring

// AttemptValue returns the total points obtainable on the attempt with the
// given zero-based index. A schedule shorter than the attempt count clamps to
// its last entry, so late attempts keep the final value instead of reading
// past the end. An empty schedule is worth nothing.
func AttemptValue(pointsList []float64, attempt int) float64 {
	if len(pointsList) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(pointsList) {
		attempt = len(pointsList) - 1
	}
	return pointsList[attempt]
}

// RemainingSchedule recomputes the points list for the attempts after
// attemptsUsed. Future ceilings shrink in proportion to the share of the
// question already solved: only the auto portion scales, the manual portion
// rides along unchanged.
func RemainingSchedule(original []float64, attemptsUsed int, maxManualPoints, highestSubmissionScore float64) []float64 {
	if attemptsUsed < 0 {
		attemptsUsed = 0
	}
	if attemptsUsed >= len(original) {
		return nil
	}
	remaining := make([]float64, 0, len(original)-attemptsUsed)
	for _, value := range original[attemptsUsed:] {
		remaining = append(remaining, (value-maxManualPoints)*(1-highestSubmissionScore)+maxManualPoints)
	}
	return remaining
}

// SumCapped totals a variants points list and caps it at maxAutoPoints. A
// zero cap means uncapped, matching questions that carry no auto points
// ceiling.
func SumCapped(values []float64, maxAutoPoints float64) float64 {
	var total float64
	for _, value := range values {
		total += value
	}
	if maxAutoPoints != 0 && total > maxAutoPoints {
		return maxAutoPoints
	}
	return total
}
