package feedback

import (
	"fmt"
	"sort"
)

// Phase is the step of the submission cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseComposing
	PhaseSending
	PhaseSucceeded
	PhaseFailed
)

// settled reports whether the state accepts edits and a new submission.
// From Sending until the state is cleared, an attempt is still in progress.
func (p Phase) settled() bool {
	return p == PhaseIdle || p == PhaseComposing
}

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseComposing:
		return "composing"
	case PhaseSending:
		return "sending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is an immutable snapshot of the response being composed. Values are
// only produced by Reduce.
type State struct {
	Phase     Phase
	Issue     int
	Message   string
	Anonymous bool
	files     map[string]File
}

// Files returns the attachments ordered by filename.
func (s State) Files() []File {
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// File returns the attachment stored under filename.
func (s State) File(filename string) (File, bool) {
	f, ok := s.files[filename]
	return f, ok
}

// TotalSize is the combined size of all attachments.
func (s State) TotalSize() int64 {
	var total int64
	for _, f := range s.files {
		total += f.Size
	}
	return total
}

// Paths returns the attachment paths ordered by filename.
func (s State) Paths() []string {
	files := s.Files()
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FilePath
	}
	return out
}

func (s State) withFiles(files map[string]File) State {
	s.files = files
	return s
}

func (s State) copyFiles() map[string]File {
	out := make(map[string]File, len(s.files)+1)
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

// Event is a request to change the state.
type Event interface {
	name() string
}

type (
	// SelectIssue picks the issue the response is for.
	SelectIssue struct{ Number int }
	// SetMessage replaces the message text.
	SetMessage struct{ Text string }
	// SetAnonymous toggles anonymous submission.
	SetAnonymous struct{ Anonymous bool }
	// AttachFile adds a file, replacing any attachment with the same filename.
	AttachFile struct {
		File   File
		Budget int64
	}
	// RemoveFile drops an attachment by filename.
	RemoveFile struct{ Filename string }
	// SendStarted moves a valid response into the sending phase.
	SendStarted struct{ MinMessageLength int }
	// SendFinished records the outcome of a delivery.
	SendFinished struct{ Err error }
	// Cleared discards the composed response.
	Cleared struct{}
)

func (SelectIssue) name() string  { return "select-issue" }
func (SetMessage) name() string   { return "set-message" }
func (SetAnonymous) name() string { return "set-anonymous" }
func (AttachFile) name() string   { return "attach-file" }
func (RemoveFile) name() string   { return "remove-file" }
func (SendStarted) name() string  { return "send-started" }
func (SendFinished) name() string { return "send-finished" }
func (Cleared) name() string      { return "cleared" }

// Reduce applies ev to s and returns the next state. On error the returned
// state is s unchanged.
func Reduce(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case Cleared:
		return State{}, nil
	case SendFinished:
		if s.Phase != PhaseSending {
			return s, fmt.Errorf("send finished in phase %s", s.Phase)
		}
		if ev.Err != nil {
			s.Phase = PhaseFailed
		} else {
			s.Phase = PhaseSucceeded
		}
		return s, nil
	}

	if !s.Phase.settled() {
		return s, ErrSubmitInFlight
	}

	switch ev := ev.(type) {
	case SelectIssue:
		s.Issue = ev.Number
	case SetMessage:
		s.Message = ev.Text
	case SetAnonymous:
		s.Anonymous = ev.Anonymous
	case AttachFile:
		if s.TotalSize()+ev.File.Size > ev.Budget {
			return s, fmt.Errorf("%w: %s", ErrAttachmentTooLarge, ev.File.Filename)
		}
		files := s.copyFiles()
		files[ev.File.Filename] = ev.File
		s = s.withFiles(files)
	case RemoveFile:
		if _, ok := s.files[ev.Filename]; !ok {
			return s, nil
		}
		files := s.copyFiles()
		delete(files, ev.Filename)
		s = s.withFiles(files)
	case SendStarted:
		if s.Issue == 0 {
			return s, ErrNoIssueSelected
		}
		if s.Message == "" {
			return s, ErrEmptyMessage
		}
		if err := ValidateMessage(s.Message, ev.MinMessageLength); err != nil {
			return s, err
		}
		s.Phase = PhaseSending
		return s, nil
	default:
		return s, fmt.Errorf("unknown event %T", ev)
	}

	s.Phase = PhaseComposing
	return s, nil
}
