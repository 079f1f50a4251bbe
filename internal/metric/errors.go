package metric

import "fmt"

// InputFormatError reports a prediction file that cannot be scored: it is
// unreadable, lacks the actual/predicted columns, or holds non-numeric data.
type InputFormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InputFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid prediction file %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid prediction file %s: %s", e.Path, e.Reason)
}

func (e *InputFormatError) Unwrap() error { return e.Err }
