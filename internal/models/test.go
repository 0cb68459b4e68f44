package models

// TestResult represents the outcome of a single test case
type TestResult string

const (
	TestResultSuccess TestResult = "success"
	TestResultFailure TestResult = "failure"
	TestResultSkipped TestResult = "skipped"
	TestResultError   TestResult = "error"
)

// TestMetadata represents one test case's result within a job
type TestMetadata struct {
	Classname string     `json:"classname"`
	Name      string     `json:"name"`
	File      string     `json:"file"`
	Result    TestResult `json:"result"`
	Message   string     `json:"message,omitempty"`
	Source    string     `json:"source,omitempty"`
	RunTime   float64    `json:"run_time,omitempty"`
}

// Failed reports whether the test failed or errored.
func (t TestMetadata) Failed() bool {
	return t.Result == TestResultFailure || t.Result == TestResultError
}
