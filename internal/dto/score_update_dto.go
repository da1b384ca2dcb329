package dto

import (
	"errors"
	"time"
)

// ErrInvalidScoreUpdate indicates a payload mixing incompatible score
// representations, e.g. points together with manual/auto points.
var ErrInvalidScoreUpdate = errors.New("conflicting score fields in update")

// ScoreUpdate is the normalized partial update for an instance question's
// score. Exactly one representation may be supplied: total points, the
// manual/auto split, or a score percentage. A nil ScoreUpdate means the
// request only touches feedback or rubric data.
type ScoreUpdate interface {
	isScoreUpdate()
}

// ScoreUpdateByPoints sets the total points; the manual share is derived by
// subtracting the current auto points.
type ScoreUpdateByPoints struct {
	Points float64
}

// ScoreUpdateByManualAuto sets either or both halves of the canonical pair
// directly.
type ScoreUpdateByManualAuto struct {
	ManualPoints *float64
	AutoPoints   *float64
}

// ScoreUpdateByScorePerc sets the score as a percentage of max points.
type ScoreUpdateByScorePerc struct {
	ScorePerc float64
}

func (ScoreUpdateByPoints) isScoreUpdate()     {}
func (ScoreUpdateByManualAuto) isScoreUpdate() {}
func (ScoreUpdateByScorePerc) isScoreUpdate()  {}

// ScoreUpdateRequest is the wire payload for a manual score edit.
type ScoreUpdateRequest struct {
	SubmissionID     *uint                  `json:"submission_id"`
	CheckModifiedAt  *time.Time             `json:"check_modified_at"`
	Points           *float64               `json:"points"`
	ManualPoints     *float64               `json:"manual_points"`
	AutoPoints       *float64               `json:"auto_points"`
	ScorePerc        *float64               `json:"score_perc"`
	Feedback         map[string]interface{} `json:"feedback"`
	ManualRubricData map[string]interface{} `json:"manual_rubric_data"`
}

// NormalizeUpdate validates the optional score fields into the tagged union.
// Supplying points alongside the split pair, or score_perc alongside either,
// is a caller bug and rejected synchronously.
func (r ScoreUpdateRequest) NormalizeUpdate() (ScoreUpdate, error) {
	switch {
	case r.Points != nil:
		if r.ManualPoints != nil || r.AutoPoints != nil || r.ScorePerc != nil {
			return nil, ErrInvalidScoreUpdate
		}
		return ScoreUpdateByPoints{Points: *r.Points}, nil
	case r.ScorePerc != nil:
		if r.ManualPoints != nil || r.AutoPoints != nil {
			return nil, ErrInvalidScoreUpdate
		}
		return ScoreUpdateByScorePerc{ScorePerc: *r.ScorePerc}, nil
	case r.ManualPoints != nil || r.AutoPoints != nil:
		return ScoreUpdateByManualAuto{ManualPoints: r.ManualPoints, AutoPoints: r.AutoPoints}, nil
	default:
		return nil, nil
	}
}

// ScoreUpdateResponse reports the outcome of a manual score edit.
type ScoreUpdateResponse struct {
	ModifiedAtConflict bool  `json:"modified_at_conflict"`
	GradingJobID       *uint `json:"grading_job_id"`
}
