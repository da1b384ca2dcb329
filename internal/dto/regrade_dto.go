package dto

// RegradeJobResponse acknowledges a batch regrade request.
type RegradeJobResponse struct {
	JobID             string `json:"job_id"`
	InstanceQuestions int    `json:"instance_questions"`
	Failed            int    `json:"failed"`
}

// RegradeProgressEvent is published after each instance question finishes
// replaying during a batch regrade.
type RegradeProgressEvent struct {
	JobID                string `json:"job_id"`
	AssessmentQuestionID uint   `json:"assessment_question_id"`
	InstanceQuestionID   uint   `json:"instance_question_id"`
	Completed            int    `json:"completed"`
	Total                int    `json:"total"`
	Error                string `json:"error,omitempty"`
}
