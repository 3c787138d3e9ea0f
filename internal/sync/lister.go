package sync

import "context"

//go:generate go tool mockgen -source=lister.go -destination=mocks/lister.gen.go -package=mocks

// IssueLister supplies the numbers of the issues the user reported.
type IssueLister interface {
	ListOwnIssueIDs(ctx context.Context) ([]int, error)
}
