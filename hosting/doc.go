// Package hosting defines the strategy interface for
// the remote content repository and the uniform error
// types shared by its implementations.
//
// The Host interface abstracts the handful of REST
// operations one submission needs: repository metadata,
// branch refs, file reads and writes, and pull request
// creation. Implementations exist for GitHub and GitLab
// in sub-packages. Every non-success remote response is
// translated into a *CallError carrying the upstream
// status and body, so the orchestrator never handles
// provider-specific errors.
package hosting
