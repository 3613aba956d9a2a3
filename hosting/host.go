package hosting

import "context"

// Pattern: Strategy -- swap hosting platform without
// changing submission logic.

// File is a file read from the content repository.
type File struct {
	// Content is the decoded file content.
	Content []byte
	// SHA identifies the blob at read time. It is
	// passed back on overwrite as an optimistic
	// concurrency guard.
	SHA string
}

// Host performs remote operations against one content
// repository on behalf of one submission. The bearer
// credential is fixed at construction time; every call
// routes through the implementation's single request
// path so headers and error translation stay uniform.
type Host interface {
	// DefaultBranch returns the repository's default
	// branch name.
	DefaultBranch(ctx context.Context) (string, error)

	// BranchHead returns the commit SHA the named
	// branch points at.
	BranchHead(
		ctx context.Context,
		branch string,
	) (string, error)

	// CreateBranch creates a new branch pointing at
	// the given commit SHA.
	CreateBranch(
		ctx context.Context,
		name string,
		sha string,
	) error

	// ReadFile reads a file at the given ref. It
	// returns ErrNotFound when the file is absent.
	ReadFile(
		ctx context.Context,
		path string,
		ref string,
	) (*File, error)

	// WriteFile commits content to path on branch.
	// Pass the SHA observed at read time when
	// overwriting; pass empty for a new file.
	WriteFile(
		ctx context.Context,
		path string,
		branch string,
		message string,
		content []byte,
		sha string,
	) error

	// OpenPullRequest opens a pull request from head
	// into base and returns its public URL.
	OpenPullRequest(
		ctx context.Context,
		head string,
		base string,
		title string,
		body string,
	) (string, error)
}

// Credentials mints the short-lived bearer token used
// for one submission's worth of remote calls. The token
// is never persisted; its lifetime is one orchestrator
// run.
type Credentials interface {
	Mint(ctx context.Context) (string, error)
}

// Factory builds a Host bound to a freshly minted
// token.
type Factory func(token string) (Host, error)
