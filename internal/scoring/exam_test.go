package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func examState(original []float64) QuestionState {
	return QuestionState{
		Status:             StatusUnanswered,
		PointsList:         append([]float64(nil), original...),
		PointsListOriginal: append([]float64(nil), original...),
	}
}

func TestScoreExamSubmissionPerfectFirstAttempt(t *testing.T) {
	state := examState([]float64{19, 14, 9})
	cfg := QuestionConfig{MaxPoints: 19, MaxAutoPoints: 19}

	result := ScoreExamSubmission(state, 1, cfg)

	require.Equal(t, 19.0, result.AutoPoints)
	require.Equal(t, StatusComplete, result.Status)
	require.False(t, result.Open)
	require.Equal(t, 1.0, result.HighestSubmissionScore)
	require.Equal(t, 1, result.NumberAttempts)
	require.Nil(t, result.CurrentValue)
}

func TestScoreExamSubmissionPartialCredit(t *testing.T) {
	state := examState([]float64{19, 14, 9})
	cfg := QuestionConfig{MaxPoints: 19, MaxAutoPoints: 19}

	result := ScoreExamSubmission(state, 0.24, cfg)

	require.InDelta(t, 19*0.24, result.AutoPoints, 1e-9)
	require.Equal(t, StatusIncorrect, result.Status)
	require.True(t, result.Open)
	require.Equal(t, 0.24, result.HighestSubmissionScore)
	require.Len(t, result.PointsList, 2)
	require.InDelta(t, 14*0.76, result.PointsList[0], 1e-9)
	require.InDelta(t, 9*0.76, result.PointsList[1], 1e-9)
	require.NotNil(t, result.CurrentValue)
	require.InDelta(t, 14*0.76, *result.CurrentValue, 1e-9)
}

func TestScoreExamSubmissionMarginalImprovementOnly(t *testing.T) {
	original := []float64{10, 8, 6}
	state := examState(original)
	cfg := QuestionConfig{MaxPoints: 10, MaxAutoPoints: 10}

	first := ScoreExamSubmission(state, 0.6, cfg)
	require.InDelta(t, 6.0, first.AutoPoints, 1e-9)

	state.AutoPoints = first.AutoPoints
	state.NumberAttempts = first.NumberAttempts
	state.HighestSubmissionScore = first.HighestSubmissionScore
	state.PointsList = first.PointsList
	state.Status = first.Status

	second := ScoreExamSubmission(state, 0.8, cfg)

	// Second attempt is worth 8 total; only the 20% improvement earns credit.
	require.InDelta(t, 6.0+8*0.2, second.AutoPoints, 1e-9)
	require.Equal(t, 0.8, second.HighestSubmissionScore)
	require.Equal(t, StatusIncorrect, second.Status)
}

func TestScoreExamSubmissionAutoPointsMonotonic(t *testing.T) {
	state := examState([]float64{20, 15, 10, 5})
	cfg := QuestionConfig{MaxPoints: 20, MaxAutoPoints: 20}

	previous := 0.0
	for _, score := range []float64{0.5, 0.3, 0.7, 0.7, 1} {
		result := ScoreExamSubmission(state, score, cfg)
		require.GreaterOrEqual(t, result.AutoPoints, previous, "credit must never decrease")
		previous = result.AutoPoints

		state.AutoPoints = result.AutoPoints
		state.NumberAttempts = result.NumberAttempts
		state.HighestSubmissionScore = result.HighestSubmissionScore
		state.PointsList = result.PointsList
		state.Status = result.Status
		if !result.Open {
			break
		}
	}
}

func TestScoreExamSubmissionPerfectScoreSaturates(t *testing.T) {
	// Values chosen so the incremental arithmetic accumulates rounding error.
	original := []float64{1.0 / 3.0 * 10}
	state := examState(original)
	state.HighestSubmissionScore = 0.1 + 0.2 // not representable exactly
	state.AutoPoints = state.HighestSubmissionScore * original[0]
	cfg := QuestionConfig{MaxPoints: original[0], MaxAutoPoints: original[0]}

	result := ScoreExamSubmission(state, 1, cfg)

	require.Equal(t, cfg.MaxAutoPoints, result.AutoPoints, "perfect score must hit the ceiling exactly")
}

func TestScoreExamSubmissionManualPortionPreserved(t *testing.T) {
	state := examState([]float64{12, 10})
	cfg := QuestionConfig{MaxPoints: 12, MaxAutoPoints: 10, MaxManualPoints: 2}

	result := ScoreExamSubmission(state, 1, cfg)

	// With manual points outstanding a correct answer does not complete the
	// question on its own.
	require.Equal(t, 10.0, result.AutoPoints)
	require.Equal(t, StatusCorrect, result.Status)
	require.True(t, result.Open)
	require.Len(t, result.PointsList, 1)
	require.InDelta(t, (10-2)*(1-1)+2, result.PointsList[0], 1e-9)
}

func TestScoreExamSubmissionExhaustedScheduleClamps(t *testing.T) {
	state := examState([]float64{10, 5})
	state.NumberAttempts = 4
	state.PointsList = []float64{5}
	state.HighestSubmissionScore = 0.2
	state.AutoPoints = 2

	cfg := QuestionConfig{MaxPoints: 10, MaxAutoPoints: 10}
	result := ScoreExamSubmission(state, 0.6, cfg)

	// The attempt is valued at the schedule's last entry.
	require.InDelta(t, 2+5*0.4, result.AutoPoints, 1e-9)
	require.Equal(t, StatusComplete, result.Status)
	require.False(t, result.Open)
	require.Empty(t, result.PointsList)
}

func TestScoreExamSubmissionLastAttemptCompletes(t *testing.T) {
	state := examState([]float64{10, 5})
	state.NumberAttempts = 1
	state.PointsList = []float64{5}

	cfg := QuestionConfig{MaxPoints: 10, MaxAutoPoints: 10}
	result := ScoreExamSubmission(state, 0.4, cfg)

	require.Equal(t, StatusComplete, result.Status)
	require.False(t, result.Open)
	require.Nil(t, result.CurrentValue)
}
