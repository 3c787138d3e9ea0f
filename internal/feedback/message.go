package feedback

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMinMessageLength is the shortest accepted non-empty message.
const DefaultMinMessageLength = 10

// ValidateMessage checks a response message. An empty message is not an
// error, it is simply not submittable yet. There is no maximum length.
func ValidateMessage(msg string, minLength int) error {
	n := utf8.RuneCountInString(msg)
	if n == 0 || n >= minLength {
		return nil
	}
	return fmt.Errorf("%w: %d characters, at least %d required", ErrMessageTooShort, n, minLength)
}

// Submittable reports whether msg may be sent.
func Submittable(msg string, minLength int) bool {
	return msg != "" && ValidateMessage(msg, minLength) == nil
}
