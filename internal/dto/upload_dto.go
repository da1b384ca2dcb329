package dto

// UploadRowError records why one CSV row could not be applied.
type UploadRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// UploadReport summarizes a bulk score upload.
type UploadReport struct {
	Processed int              `json:"processed"`
	Applied   int              `json:"applied"`
	Conflicts int              `json:"conflicts"`
	Skipped   int              `json:"skipped"`
	Errors    []UploadRowError `json:"errors,omitempty"`
}
