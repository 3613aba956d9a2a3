package submitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"

	"github.com/sceneindex/submitd/hosting"
	"github.com/sceneindex/submitd/scenelist"
)

// Defaults used when the corresponding Config field is
// left empty.
const (
	DefaultBranchPrefix  = "scene-list/"
	DefaultIndexPath     = "scenejsons/index.json"
	DefaultTitleTemplate = "Add scene list for {IMDB_ID}"
	DefaultBodyTemplate  = "Scene list submission for " +
		"{IMDB_ID}.\n\nPath: {SCENE_PATH}\nBranch: " +
		"{BRANCH}\nSubmitted: {TIMESTAMP}\n"
)

// Config holds all settings for a submission run. Use a
// Config struct instead of many arguments.
type Config struct {
	// Credentials mints the bearer token for this
	// submission.
	Credentials hosting.Credentials

	// NewHost builds the repository host bound to the
	// minted token.
	NewHost hosting.Factory

	// BranchPrefix is prepended to submission branch
	// names.
	BranchPrefix string

	// IndexPath is the repository path of the shared
	// index document.
	IndexPath string

	// TitleTemplate renders the pull request title.
	// Variables: {IMDB_ID}, {SCENE_PATH}, {BRANCH},
	// {TIMESTAMP}.
	TitleTemplate string

	// BodyTemplate renders the pull request body with
	// the same variables as TitleTemplate.
	BodyTemplate string

	// Now supplies the current time. Nil means
	// time.Now.
	Now func() time.Time
}

// Result is the outcome of a successful submission.
type Result struct {
	// PRURL is the public URL of the opened pull
	// request.
	PRURL string
	// Branch is the submission branch name.
	Branch string
}

// Run executes the full submission workflow, strictly
// sequential and terminal on first failure. The default
// branch is never written to: every mutation happens on
// a branch unique to this attempt.
func Run(
	ctx context.Context,
	cfg Config,
	sub *scenelist.Submission,
) (*Result, error) {
	const errCtx = "running scene list submission"

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	// Step 0: Mint the installation token. No remote
	// mutation has been attempted yet.
	token, err := cfg.Credentials.Mint(ctx)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: mint token: %w", errCtx, err,
		)
	}

	host, err := cfg.NewHost(token)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: create host: %w", errCtx, err,
		)
	}

	// Step 1: Read repository metadata.
	base, err := host.DefaultBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: default branch: %w", errCtx, err,
		)
	}

	// Step 2: Read the default branch's head SHA.
	sha, err := host.BranchHead(ctx, base)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: branch head: %w", errCtx, err,
		)
	}

	// Step 3: Create the submission branch. The
	// millisecond timestamp keeps retried attempts
	// from colliding on the ref name.
	startedAt := now()

	branch := branchName(
		cfg.BranchPrefix, sub.SceneList.IMDBID, startedAt,
	)

	if err := host.CreateBranch(
		ctx, branch, sha,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: create branch: %w", errCtx, err,
		)
	}

	slog.Info(
		"created submission branch",
		"branch", branch,
		"base", base,
	)

	// Step 4: Commit the scene-list file as a new
	// file on the submission branch.
	content, err := json.MarshalIndent(
		&sub.SceneList, "", "  ",
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: marshal scene list: %w", errCtx, err,
		)
	}

	if err := host.WriteFile(
		ctx,
		sub.ScenePath,
		branch,
		"Add scene list "+sub.ScenePath,
		content,
		"",
	); err != nil {
		return nil, fmt.Errorf(
			"%s: write scene list: %w", errCtx, err,
		)
	}

	// Steps 5-6: Append one entry to the index
	// document on the submission branch.
	if err := appendToIndex(
		ctx, host, cfg.IndexPath, branch, sub,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	// Step 7: Open the pull request.
	vars := templateVars(sub, branch, startedAt)

	url, err := host.OpenPullRequest(
		ctx,
		branch,
		base,
		render(cfg.TitleTemplate, DefaultTitleTemplate, vars),
		render(cfg.BodyTemplate, DefaultBodyTemplate, vars),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: open pull request: %w", errCtx, err,
		)
	}

	// Step 8: The PR URL is the caller-visible
	// outcome; a success response without one is a
	// remote contract violation.
	if url == "" {
		return nil, fmt.Errorf(
			"%s: open pull request: %w", errCtx,
			&hosting.CallError{
				Op:   "creating pull request",
				Body: "response missing html_url",
			},
		)
	}

	slog.Info(
		"opened pull request",
		"url", url,
		"imdb_id", sub.SceneList.IMDBID,
	)

	return &Result{PRURL: url, Branch: branch}, nil
}

// appendToIndex reads the index document on the
// submission branch, appends exactly one entry, and
// writes it back using the SHA observed at read time.
// An absent or malformed document is treated as empty.
func appendToIndex(
	ctx context.Context,
	host hosting.Host,
	indexPath string,
	branch string,
	sub *scenelist.Submission,
) error {
	if indexPath == "" {
		indexPath = DefaultIndexPath
	}

	var (
		index    scenelist.Index
		indexSHA string
	)

	file, err := host.ReadFile(ctx, indexPath, branch)

	switch {
	case errors.Is(err, hosting.ErrNotFound):
		// First submission ever: start a fresh
		// document.
	case err != nil:
		return fmt.Errorf("read index: %w", err)
	default:
		indexSHA = file.SHA

		if jsonErr := json.Unmarshal(
			file.Content, &index,
		); jsonErr != nil {
			slog.Warn(
				"index document is malformed, starting "+
					"fresh",
				"path", indexPath,
			)

			index = scenelist.Index{}
		}
	}

	index.Movies = append(
		index.Movies, sub.IndexEntry(),
	)

	content, err := json.MarshalIndent(
		&index, "", "  ",
	)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := host.WriteFile(
		ctx,
		indexPath,
		branch,
		"Update scene index for "+sub.SceneList.IMDBID,
		content,
		indexSHA,
	); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return nil
}

// branchName composes the unique per-attempt branch
// name from the prefix, the normalized IMDb id, and a
// millisecond timestamp.
func branchName(
	prefix string,
	imdbID string,
	at time.Time,
) string {
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}

	return prefix + imdbID + "-" +
		strconv.FormatInt(at.UnixMilli(), 10)
}

// templateVars builds the substitution context for the
// pull request title and body templates.
func templateVars(
	sub *scenelist.Submission,
	branch string,
	at time.Time,
) map[string]any {
	return map[string]any{
		"IMDB_ID":    sub.SceneList.IMDBID,
		"SCENE_PATH": sub.ScenePath,
		"BRANCH":     branch,
		"TIMESTAMP":  at.UTC().Format(time.RFC3339),
	}
}

// render expands {VAR} placeholders in tpl, falling
// back to def when tpl is empty. Unknown variables are
// preserved as-is.
func render(
	tpl string,
	def string,
	vars map[string]any,
) string {
	if tpl == "" {
		tpl = def
	}

	return fasttemplate.ExecuteStringStd(
		tpl, "{", "}", vars,
	)
}
