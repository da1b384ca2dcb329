package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeUpdateSelectsRepresentation(t *testing.T) {
	points := 5.0
	perc := 70.0
	manual := 2.0

	update, err := ScoreUpdateRequest{Points: &points}.NormalizeUpdate()
	require.NoError(t, err)
	require.IsType(t, ScoreUpdateByPoints{}, update)

	update, err = ScoreUpdateRequest{ScorePerc: &perc}.NormalizeUpdate()
	require.NoError(t, err)
	require.IsType(t, ScoreUpdateByScorePerc{}, update)

	update, err = ScoreUpdateRequest{ManualPoints: &manual}.NormalizeUpdate()
	require.NoError(t, err)
	require.IsType(t, ScoreUpdateByManualAuto{}, update)
}

func TestNormalizeUpdateRejectsMixedRepresentations(t *testing.T) {
	points := 5.0
	perc := 70.0
	manual := 2.0
	auto := 3.0

	cases := []ScoreUpdateRequest{
		{Points: &points, ManualPoints: &manual},
		{Points: &points, AutoPoints: &auto},
		{Points: &points, ScorePerc: &perc},
		{ScorePerc: &perc, ManualPoints: &manual},
		{ScorePerc: &perc, AutoPoints: &auto},
	}
	for _, request := range cases {
		_, err := request.NormalizeUpdate()
		require.ErrorIs(t, err, ErrInvalidScoreUpdate)
	}
}

func TestNormalizeUpdateFeedbackOnlyIsNil(t *testing.T) {
	update, err := ScoreUpdateRequest{
		Feedback: map[string]interface{}{"comment": "nice work"},
	}.NormalizeUpdate()
	require.NoError(t, err)
	require.Nil(t, update)
}
