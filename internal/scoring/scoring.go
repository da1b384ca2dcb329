// Package scoring implements the points arithmetic for instance questions.
// All functions are pure: they operate on plain snapshots of instance-question
// and assessment-question state and never touch persistence, so the grading
// contract can be tested exhaustively without a database.
package scoring

// Instance question statuses produced by the scoring policies.
const (
	StatusUnanswered = "unanswered"
	StatusSaved      = "saved"
	StatusCorrect    = "correct"
	StatusIncorrect  = "incorrect"
	StatusComplete   = "complete"
)

// QuestionState is the mutable scoring state of an instance question at the
// moment a new graded submission arrives.
type QuestionState struct {
	AutoPoints             float64
	NumberAttempts         int
	HighestSubmissionScore float64
	CurrentValue           *float64
	Status                 string
	PointsList             []float64
	PointsListOriginal     []float64
	VariantsPointsList     []float64
}

// QuestionConfig is the immutable assessment-question configuration the
// policies score against. Nullable columns are normalized to zero by the
// caller before the policies run.
type QuestionConfig struct {
	MaxPoints       float64
	MaxAutoPoints   float64
	MaxManualPoints float64
	InitPoints      float64
}

// Result is the state an instance question must be updated to after one
// graded submission has been applied.
type Result struct {
	Open                   bool
	Status                 string
	AutoPoints             float64
	HighestSubmissionScore float64
	CurrentValue           *float64
	PointsList             []float64
	VariantsPointsList     []float64
	NumberAttempts         int
}
