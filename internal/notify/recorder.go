package notify

import "sync"

// Event is one call recorded by a Recorder.
type Event struct {
	Method  string
	ID      string
	Kind    DialogKind
	Title   string
	Message string
	Detail  string
	Actions []Action
}

// Recorder is a Sink that keeps every call, for tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) StartActivity(id, message string) {
	r.add(Event{Method: "StartActivity", ID: id, Message: message})
}

func (r *Recorder) Dismiss(id string) {
	r.add(Event{Method: "Dismiss", ID: id})
}

func (r *Recorder) ShowError(message, detail, id string) {
	r.add(Event{Method: "ShowError", ID: id, Message: message, Detail: detail})
}

func (r *Recorder) ShowInfo(message string, action *Action) {
	e := Event{Method: "ShowInfo", Message: message}
	if action != nil {
		e.Actions = []Action{*action}
	}
	r.add(e)
}

func (r *Recorder) ShowDialog(kind DialogKind, title, content string, actions []Action) {
	r.add(Event{Method: "ShowDialog", Kind: kind, Title: title, Message: content, Actions: append([]Action(nil), actions...)})
}

// Events returns a copy of the recorded calls in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByMethod returns the recorded calls of one method.
func (r *Recorder) ByMethod(method string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Method == method {
			out = append(out, e)
		}
	}
	return out
}
