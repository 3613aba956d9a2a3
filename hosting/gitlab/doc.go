// Package gitlab implements the hosting.Host strategy
// on the GitLab REST API. GitLab access uses a static
// project token, so its credentials are a plain
// pass-through rather than an assertion exchange.
package gitlab
