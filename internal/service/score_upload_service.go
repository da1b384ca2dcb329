package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/dto"
	"github.com/noah-isme/tally-scoring-api/internal/observability"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

// ErrEmptyUpload indicates the CSV contained no data rows.
var ErrEmptyUpload = errors.New("upload contains no rows")

// manualRubricSchema constrains uploaded rubric payloads before they are
// stored on grading jobs.
const manualRubricSchema = `{
	"type": "object",
	"properties": {
		"rubric_id": {"type": "integer"},
		"applied_rubric_items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"rubric_item_id": {"type": "integer"},
					"score": {"type": "number"}
				},
				"required": ["rubric_item_id"]
			}
		}
	}
}`

// ScoreUploadService applies bulk CSV score rows. Rows are an authoritative
// override, so they route through the score updater as manual grading
// actions, never through the scoring policies.
type ScoreUploadService interface {
	ApplyCSV(ctx context.Context, assessmentID uint, reader io.Reader, authnUserID uint) (dto.UploadReport, error)
}

type scoreUploadService struct {
	updates           ScoreUpdateService
	instanceQuestions repository.InstanceQuestionRepository
	instances         repository.AssessmentInstanceRepository
	sanitizer         *bluemonday.Policy
	rubricSchema      *jsonschema.Schema
	logger            zerolog.Logger
	now               func() time.Time
}

// NewScoreUploadService constructs the upload service.
func NewScoreUploadService(
	updates ScoreUpdateService,
	instanceQuestions repository.InstanceQuestionRepository,
	instances repository.AssessmentInstanceRepository,
	logger zerolog.Logger,
) ScoreUploadService {
	schema := jsonschema.MustCompileString("manual_rubric.json", manualRubricSchema)
	return &scoreUploadService{
		updates:           updates,
		instanceQuestions: instanceQuestions,
		instances:         instances,
		sanitizer:         bluemonday.StrictPolicy(),
		rubricSchema:      schema,
		logger:            logger.With().Str("component", "score_upload_service").Logger(),
		now:               time.Now,
	}
}

type uploadRow struct {
	line                 int
	instanceQuestionID   *uint
	assessmentInstanceID *uint
	submissionID         *uint
	points               *float64
	manualPoints         *float64
	autoPoints           *float64
	scorePerc            *float64
	feedback             string
	rubricData           map[string]interface{}
}

func (s *scoreUploadService) ApplyCSV(ctx context.Context, assessmentID uint, reader io.Reader, authnUserID uint) (dto.UploadReport, error) {
	rows, parseErrors, err := parseUploadCSV(reader)
	if err != nil {
		return dto.UploadReport{}, err
	}
	if len(rows) == 0 && len(parseErrors) == 0 {
		return dto.UploadReport{}, ErrEmptyUpload
	}

	report := dto.UploadReport{Errors: parseErrors, Skipped: len(parseErrors)}

	for _, row := range rows {
		report.Processed++

		var applyErr error
		var conflict bool
		switch {
		case row.instanceQuestionID != nil:
			conflict, applyErr = s.applyInstanceQuestionRow(ctx, assessmentID, row, authnUserID)
		case row.assessmentInstanceID != nil:
			applyErr = s.applyAssessmentInstanceRow(ctx, row)
		default:
			applyErr = errors.New("row names neither instance_question_id nor assessment_instance_id")
		}

		switch {
		case conflict:
			report.Conflicts++
		case applyErr != nil:
			report.Skipped++
			report.Errors = append(report.Errors, dto.UploadRowError{Line: row.line, Message: applyErr.Error()})
		default:
			report.Applied++
		}
	}

	observability.ScoreUpdates().WithLabelValues("upload", "applied").Add(float64(report.Applied))
	s.logger.Info().
		Uint("assessment_id", assessmentID).
		Int("processed", report.Processed).
		Int("applied", report.Applied).
		Int("conflicts", report.Conflicts).
		Int("skipped", report.Skipped).
		Msg("score upload finished")

	return report, nil
}

func (s *scoreUploadService) applyInstanceQuestionRow(ctx context.Context, assessmentID uint, row uploadRow, authnUserID uint) (bool, error) {
	instanceQuestion, err := s.instanceQuestions.GetForAssessment(ctx, assessmentID, *row.instanceQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrInstanceQuestionNotFound
		}
		return false, err
	}

	maxPoints := instanceQuestion.AssessmentQuestion.EffectiveMaxPoints()
	maxAuto := instanceQuestion.AssessmentQuestion.EffectiveMaxAutoPoints()

	// Uploads are the one boundary where values are clamped.
	request := dto.ScoreUpdateRequest{
		Points:       clampPtr(row.points, 0, maxPoints),
		ManualPoints: row.manualPoints,
		AutoPoints:   clampPtr(row.autoPoints, 0, maxAuto),
		ScorePerc:    clampPtr(row.scorePerc, 0, 100),
	}
	update, err := request.NormalizeUpdate()
	if err != nil {
		return false, err
	}

	var feedback map[string]interface{}
	if strings.TrimSpace(row.feedback) != "" {
		feedback = map[string]interface{}{
			"comment": s.sanitizer.Sanitize(strings.TrimSpace(row.feedback)),
		}
	}

	if row.rubricData != nil {
		if err := s.rubricSchema.Validate(row.rubricData); err != nil {
			return false, fmt.Errorf("invalid manual rubric data: %w", err)
		}
	}

	result, err := s.updates.UpdateInstanceQuestionScore(ctx, ScoreUpdateParams{
		AssessmentID:       assessmentID,
		InstanceQuestionID: instanceQuestion.ID,
		SubmissionID:       row.submissionID,
		Update:             update,
		Feedback:           feedback,
		ManualRubricData:   row.rubricData,
		AuthnUserID:        authnUserID,
		Source:             "upload",
	})
	if err != nil {
		return false, err
	}

	return result.ModifiedAtConflict, nil
}

// applyAssessmentInstanceRow overrides a whole assessment instance's total.
// Per-question state is left alone: the override lives on the instance row.
func (s *scoreUploadService) applyAssessmentInstanceRow(ctx context.Context, row uploadRow) error {
	instance, err := s.instances.GetByID(ctx, *row.assessmentInstanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssessmentInstanceNotFound
		}
		return err
	}

	switch {
	case row.scorePerc != nil:
		instance.ScorePerc = clamp(*row.scorePerc, 0, 100)
		instance.Points = instance.ScorePerc / 100 * instance.MaxPoints
	case row.points != nil:
		instance.Points = clamp(*row.points, 0, instance.MaxPoints)
		if instance.MaxPoints > 0 {
			instance.ScorePerc = instance.Points / instance.MaxPoints * 100
		} else {
			instance.ScorePerc = 0
		}
	default:
		return errors.New("assessment instance row must supply points or score_perc")
	}

	instance.ModifiedAt = s.now()
	return s.instances.Update(ctx, &instance)
}

func parseUploadCSV(reader io.Reader) ([]uploadRow, []dto.UploadRowError, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyUpload
		}
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows []uploadRow
	var rowErrors []dto.UploadRowError
	line := 1

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rowErrors = append(rowErrors, dto.UploadRowError{Line: line, Message: err.Error()})
			continue
		}

		row, err := parseUploadRecord(columns, record, line)
		if err != nil {
			rowErrors = append(rowErrors, dto.UploadRowError{Line: line, Message: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

func parseUploadRecord(columns map[string]int, record []string, line int) (uploadRow, error) {
	row := uploadRow{line: line}

	field := func(name string) string {
		index, ok := columns[name]
		if !ok || index >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[index])
	}

	var err error
	if row.instanceQuestionID, err = parseUintField(field("instance_question_id")); err != nil {
		return uploadRow{}, fmt.Errorf("instance_question_id: %w", err)
	}
	if row.assessmentInstanceID, err = parseUintField(field("assessment_instance_id")); err != nil {
		return uploadRow{}, fmt.Errorf("assessment_instance_id: %w", err)
	}
	if row.submissionID, err = parseUintField(field("submission_id")); err != nil {
		return uploadRow{}, fmt.Errorf("submission_id: %w", err)
	}
	if row.points, err = parseFloatField(field("points")); err != nil {
		return uploadRow{}, fmt.Errorf("points: %w", err)
	}
	if row.manualPoints, err = parseFloatField(field("manual_points")); err != nil {
		return uploadRow{}, fmt.Errorf("manual_points: %w", err)
	}
	if row.autoPoints, err = parseFloatField(field("auto_points")); err != nil {
		return uploadRow{}, fmt.Errorf("auto_points: %w", err)
	}
	if row.scorePerc, err = parseFloatField(field("score_perc")); err != nil {
		return uploadRow{}, fmt.Errorf("score_perc: %w", err)
	}

	row.feedback = field("feedback")

	if rubric := field("rubric_data"); rubric != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(rubric), &data); err != nil {
			return uploadRow{}, fmt.Errorf("rubric_data: %w", err)
		}
		row.rubricData = data
	}

	return row, nil
}

func parseUintField(value string) (*uint, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	result := uint(parsed)
	return &result, nil
}

func parseFloatField(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if high > 0 && value > high {
		return high
	}
	return value
}

func clampPtr(value *float64, low, high float64) *float64 {
	if value == nil {
		return nil
	}
	clamped := clamp(*value, low, high)
	return &clamped
}
