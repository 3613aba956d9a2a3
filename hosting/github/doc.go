// Package github implements the hosting.Host strategy
// on the GitHub REST API, and mints the short-lived
// installation tokens used to authenticate as a GitHub
// App.
package github
