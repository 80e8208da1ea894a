package entity

// TestFile is one generated Playwright spec.
type TestFile struct {
	JobID    string           `json:"jobId" bson:"job_id"`
	Name     string           `json:"filename" bson:"name"`
	Content  string           `json:"content" bson:"content"`
	HasError bool             `json:"hasError" bson:"has_error"`
	ErrorMsg *ValidationError `json:"error,omitempty" bson:"error_msg,omitempty"`
}

type ValidationError struct {
	File    string `json:"file" bson:"file"`
	Message string `json:"message" bson:"message"`
	Line    int    `json:"line,omitempty" bson:"line,omitempty"`
}
