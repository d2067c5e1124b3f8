package generation

// Job is the record produced to the tasks topic. It never changes after
// submission.
type Job struct {
	ID          int64  `json:"id"`
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Gender      string `json:"gender"`
	Age         string `json:"age"`
	ImagesCount int    `json:"images_count"`
}

type AttemptInfo struct {
	Attempt          int    `json:"attempt"`
	LastAttemptError string `json:"last_attempt_error"`
}

// Result is what the worker writes back to the results topic. It echoes the
// job fields.
type Result struct {
	Job
	Info    AttemptInfo `json:"info"`
	Images  []string    `json:"images"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

const StatusSuccess = "success"
