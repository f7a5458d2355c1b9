package workflow

import (
	"errors"
	"fmt"
)

// ErrDeclined is returned when the user answers "n" to the final confirmation
var ErrDeclined = errors.New("export declined")

// Step names one stage of the export flow
type Step string

// The four stages, in order
const (
	StepArchive    Step = "ARCHIVE"
	StepProfile    Step = "PROVISIONING PROFILE"
	StepExportPath Step = "EXPORT PATH"
	StepExport     Step = "SIGNING/EXPORTING"
)

var steps = []Step{StepArchive, StepProfile, StepExportPath, StepExport}

// StepError reports which step failed and what the user can do about it
type StepError struct {
	Step Step
	Err  error
	Hint string // optional instruction for the user
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error, hint string) error {
	return &StepError{Step: step, Err: err, Hint: hint}
}
