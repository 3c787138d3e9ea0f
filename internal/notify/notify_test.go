package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewID_IsUUID(t *testing.T) {
	id := NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewID() = %q is not a UUID: %v", id, err)
	}
	if NewID() == id {
		t.Error("NewID() returned the same id twice")
	}
}

func TestConsole_Output(t *testing.T) {
	tests := []struct {
		name string
		call func(s Sink)
		want string
	}{
		{
			name: "activity",
			call: func(s Sink) { s.StartActivity("a", "Refreshing issues") },
			want: "Refreshing issues...\n",
		},
		{
			name: "error with detail",
			call: func(s Sink) { s.ShowError("delivery failed", "HTTP 500", "x") },
			want: "error: delivery failed: HTTP 500\n",
		},
		{
			name: "error without detail",
			call: func(s Sink) { s.ShowError("delivery failed", "", "x") },
			want: "error: delivery failed\n",
		},
		{
			name: "info with action",
			call: func(s Sink) { s.ShowInfo("Response sent", &Action{Label: "Open", URL: "https://example.com"}) },
			want: "Response sent (Open: https://example.com)\n",
		},
		{
			name: "dialog",
			call: func(s Sink) {
				s.ShowDialog(DialogInfo, "Reply needed", "2 issues", []Action{{Label: "#1", URL: "u1"}, {Label: "Dismiss"}})
			},
			want: "[info] Reply needed\n2 issues\n  - #1: u1\n  - Dismiss\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.call(NewConsole(&buf))
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestConsole_DismissIsSilent(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Dismiss("a")
	if buf.Len() != 0 {
		t.Errorf("Dismiss wrote %q", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.StartActivity("1", "working")
	r.ShowInfo("done", nil)
	r.ShowDialog(DialogWarning, "t", "c", []Action{{Label: "a"}})
	r.Dismiss("1")

	events := r.Events()
	if len(events) != 4 {
		t.Fatalf("recorded %d events, want 4", len(events))
	}
	var methods []string
	for _, e := range events {
		methods = append(methods, e.Method)
	}
	if got := strings.Join(methods, ","); got != "StartActivity,ShowInfo,ShowDialog,Dismiss" {
		t.Errorf("methods = %s", got)
	}
	if d := r.ByMethod("ShowDialog"); len(d) != 1 || d[0].Kind != DialogWarning {
		t.Errorf("ByMethod(ShowDialog) = %+v", d)
	}
}
