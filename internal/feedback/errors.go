package feedback

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAttachmentTooLarge is returned when an attachment would push the
	// combined size over the budget. The attachment set is left unchanged.
	ErrAttachmentTooLarge = errors.New("the combined file size must not exceed the attachment budget")
	// ErrValidation is the parent of local input validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrMessageTooShort is returned for a non-empty message below the minimum length.
	ErrMessageTooShort = fmt.Errorf("%w: message is too short", ErrValidation)
	// ErrEmptyMessage is returned by Submit when no message was typed yet.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoIssueSelected is returned by Submit when no target issue was chosen.
	ErrNoIssueSelected = errors.New("no issue selected")
	// ErrNotOutstanding is returned when selecting an issue that does not wait for a response.
	ErrNotOutstanding = errors.New("issue is not waiting for a response")
	// ErrSubmitInFlight is returned while a submission is being sent.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrUnknownSource is returned for an attachment source outside the known set.
	ErrUnknownSource = errors.New("unknown attachment source")
	// ErrSourceUnavailable is returned when nothing can provide a source's content.
	ErrSourceUnavailable = errors.New("attachment source unavailable")
	// ErrFilesNotCarried is returned when including a generated dump that the
	// delivery channel would drop.
	ErrFilesNotCarried = errors.New("the delivery channel cannot carry generated attachments")
)

// InvalidParameterError is reported by a delivery channel that rejected the
// report itself.
type InvalidParameterError struct {
	Message string
}

func (e *InvalidParameterError) Error() string {
	return "invalid parameter: " + e.Message
}

// ResponseError is reported by a delivery channel whose server answered with
// an error body.
type ResponseError struct {
	Message string
	Body    string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return e.Message
	}
	return e.Message + " - " + e.Body
}

// DeliveryError wraps a failure reported by the delivery channel.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "failed to send feedback: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Detail is the text shown to the user for the failure.
func (e *DeliveryError) Detail() string {
	var invalid *InvalidParameterError
	if errors.As(e.Err, &invalid) {
		return invalid.Message
	}
	var resp *ResponseError
	if errors.As(e.Err, &resp) && resp.Body != "" {
		return resp.Message + " - " + resp.Body
	}
	return e.Err.Error()
}

// CleanupError collects failures to remove temporary attachments. It never
// changes the outcome of the submission it follows.
type CleanupError struct {
	Errs []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "failed to remove temporary files: " + strings.Join(msgs, "; ")
}

func (e *CleanupError) Unwrap() []error { return e.Errs }
