package feedback

import "context"

//go:generate go tool mockgen -source=deliverer.go -destination=mocks/deliverer.gen.go -package=mocks

// Report is what gets delivered for one response.
type Report struct {
	Issue       int
	Title       string
	Body        string
	Attachments []string
	Anonymous   bool
}

// Deliverer sends a report to the tracker.
type Deliverer interface {
	Deliver(ctx context.Context, report Report) error
}

// FileCarrier is implemented by delivery channels that can tell whether
// attachment content reaches the tracker. A channel without it is assumed to
// carry files.
type FileCarrier interface {
	CarriesFiles() bool
}

// Credentials looks up the stored API key, if any.
type Credentials interface {
	APIKey() (string, bool)
}
