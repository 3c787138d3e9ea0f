package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanCodinha/ghfeedback/internal/feedback"
	"github.com/JohanCodinha/ghfeedback/internal/gh"
)

func newTestGitHub(t *testing.T) (*GitHub, *gh.MockServer) {
	t.Helper()
	server := gh.NewMockServer()
	t.Cleanup(server.Close)
	server.AddIssue(&gh.Issue{Number: 11, Title: "Crash on start"})

	d, err := NewGitHub("token", server.URL, server.Owner, server.Repo)
	require.NoError(t, err)
	return d, server
}

func TestGitHub_PostsComment(t *testing.T) {
	d, server := newTestGitHub(t)

	err := d.Deliver(context.Background(), feedback.Report{
		Issue:       11,
		Title:       "Response to #11",
		Body:        "Version: 1.0\nStill crashes",
		Attachments: []string{"/tmp/a/app.log", "/tmp/b/state-123.json"},
	})
	require.NoError(t, err)

	posted := server.PostedComments(11)
	require.Len(t, posted, 1)
	body := posted[0].Body
	assert.True(t, strings.HasPrefix(body, "### Response to #11\n\nVersion: 1.0\nStill crashes\n"))
	assert.Contains(t, body, "- `app.log`")
	assert.Contains(t, body, "- `state-123.json`")
	assert.NotContains(t, body, "/tmp/")
	assert.NotContains(t, body, "not to be contacted")
}

func TestGitHub_AnonymousNote(t *testing.T) {
	d, server := newTestGitHub(t)

	require.NoError(t, d.Deliver(context.Background(), feedback.Report{Issue: 11, Title: "Response to #11", Body: "ok", Anonymous: true}))

	posted := server.PostedComments(11)
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0].Body, "not to be contacted")
	assert.NotContains(t, posted[0].Body, "Attachments")
}

func TestGitHub_MissingIssueNumber(t *testing.T) {
	d, server := newTestGitHub(t)

	err := d.Deliver(context.Background(), feedback.Report{Title: "Response"})
	var invalid *feedback.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, server.Requests())
}

func TestGitHub_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		wantInvalid string
		wantResp    *feedback.ResponseError
	}{
		{
			name:        "validation failure",
			code:        422,
			body:        `{"message":"Validation Failed","errors":[{"resource":"IssueComment","field":"body","code":"missing_field"}]}`,
			wantInvalid: "Validation Failed: body missing_field",
		},
		{
			name:        "validation failure with message",
			code:        422,
			body:        `{"message":"Validation Failed","errors":[{"message":"body is too long"}]}`,
			wantInvalid: "Validation Failed: body is too long",
		},
		{
			name:     "server error",
			code:     500,
			body:     `{"message":"Server Error"}`,
			wantResp: &feedback.ResponseError{Message: "HTTP 500", Body: "Server Error"},
		},
		{
			name:     "not json",
			code:     502,
			body:     `bad gateway`,
			wantResp: &feedback.ResponseError{Message: "HTTP 502"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, server := newTestGitHub(t)
			server.SetNextError(tt.code, tt.body)

			err := d.Deliver(context.Background(), feedback.Report{Issue: 11, Title: "Response to #11", Body: "text"})
			require.Error(t, err)

			if tt.wantResp == nil {
				var invalid *feedback.InvalidParameterError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.wantInvalid, invalid.Message)
				return
			}
			var resp *feedback.ResponseError
			require.ErrorAs(t, err, &resp)
			assert.Equal(t, *tt.wantResp, *resp)
		})
	}
}

func TestGitHub_TransportErrorPassesThrough(t *testing.T) {
	d, server := newTestGitHub(t)
	server.Close()

	err := d.Deliver(context.Background(), feedback.Report{Issue: 11, Title: "Response to #11", Body: "text"})
	require.Error(t, err)
	var invalid *feedback.InvalidParameterError
	var resp *feedback.ResponseError
	assert.False(t, errors.As(err, &invalid))
	assert.False(t, errors.As(err, &resp))
}

func TestCarriesFiles(t *testing.T) {
	d, _ := newTestGitHub(t)
	var carrier feedback.FileCarrier = d
	assert.False(t, carrier.CarriesFiles(), "comments only list attachment names")

	carrier = NewOutbox(t.TempDir())
	assert.True(t, carrier.CarriesFiles())
}

func TestToken(t *testing.T) {
	key, ok := Token("abc").APIKey()
	assert.Equal(t, "abc", key)
	assert.True(t, ok)

	_, ok = Token("").APIKey()
	assert.False(t, ok)
}
