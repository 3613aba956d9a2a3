// Package submitter orchestrates one scene-list
// submission: it mints a short-lived token, creates a
// submission branch from the default branch tip, commits
// the scene-list file, appends one entry to the shared
// index document, and opens a pull request.
//
// The pipeline is strictly sequential and terminal on
// first failure. Nothing is retried and nothing is
// rolled back: a branch created before a later failure
// is intentionally left in place, and the unique
// per-attempt branch name keeps retried submissions from
// colliding with it.
package submitter
