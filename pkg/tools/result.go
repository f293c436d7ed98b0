package tools

// Result is the outcome of one tool invocation. Both variants travel back to
// the model as plain text; Failed only matters to logs and metrics.
type Result struct {
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
}

// Success wraps handler output.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure wraps a message describing what went wrong.
func Failure(msg string) Result {
	return Result{Text: msg, Failed: true}
}

func (r Result) String() string {
	return r.Text
}
