// Command submitd accepts scene-list submissions over
// HTTP and records each one in the content repository
// by opening a pull request on a submission-unique
// branch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sceneindex/submitd/config"
	"github.com/sceneindex/submitd/hosting"
	ghhost "github.com/sceneindex/submitd/hosting/github"
	glhost "github.com/sceneindex/submitd/hosting/gitlab"
	"github.com/sceneindex/submitd/journal"
	"github.com/sceneindex/submitd/logging"
	"github.com/sceneindex/submitd/scenelist"
	"github.com/sceneindex/submitd/server"
	"github.com/sceneindex/submitd/submitter"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	const errCtx = "running submitd"

	configPath := flag.String(
		"config", "submitd.yaml",
		"Path to the YAML config file",
	)
	listen := flag.String(
		"listen", "",
		"Listen address override",
	)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info(
		"starting submitd",
		"version", version,
		"provider", cfg.Provider,
	)

	creds, factory, err := newHosting(cfg)
	if err != nil {
		return fmt.Errorf(
			"%s: create hosting: %w", errCtx, err,
		)
	}

	var jnl *journal.Journal

	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf(
				"%s: open journal: %w", errCtx, err,
			)
		}

		defer jnl.Close() //nolint:errcheck
	}

	submitCfg := submitter.Config{
		Credentials:   creds,
		NewHost:       factory,
		BranchPrefix:  cfg.Submission.BranchPrefix,
		IndexPath:     cfg.Submission.IndexPath,
		TitleTemplate: cfg.Submission.PRTitle,
		BodyTemplate:  cfg.Submission.PRBody,
	}

	srv := server.NewServer(cfg.Listen, server.Config{
		Logger:       logger,
		SharedSecret: cfg.SharedSecret,
		Rules:        scenelist.DefaultRules(),
		Submit: func(
			ctx context.Context,
			sub *scenelist.Submission,
		) (*submitter.Result, error) {
			return submitter.Run(ctx, submitCfg, sub)
		},
		Journal:   jnl,
		Version:   version,
		StartTime: time.Now(),
	})

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(
		stop, os.Interrupt, syscall.SIGTERM,
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	case sig := <-stop:
		logger.Info(
			"received signal", "signal", sig.String(),
		)
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), 15*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf(
			"%s: shutdown: %w", errCtx, err,
		)
	}

	return nil
}

// newHosting builds the credential minter and host
// factory for the configured provider.
// Pattern: Factory -- selects platform implementation
// at runtime.
func newHosting(
	cfg *config.Config,
) (hosting.Credentials, hosting.Factory, error) {
	const errCtx = "creating hosting backend"

	switch cfg.Provider {
	case "github":
		creds, err := ghhost.NewAppCredentials(
			ghhost.AppConfig{
				AppID:          cfg.GitHub.AppID,
				InstallationID: cfg.GitHub.InstallationID,
				PrivateKeyPEM:  cfg.GitHub.PrivateKeyPEM,
				APIBaseURL:     cfg.GitHub.APIBaseURL,
			},
		)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		factory := func(
			token string,
		) (hosting.Host, error) {
			return ghhost.NewHost(ghhost.Config{
				RepoOwner:   cfg.GitHub.Owner,
				Repo:        cfg.GitHub.Repo,
				AccessToken: token,
				APIBaseURL:  cfg.GitHub.APIBaseURL,
			})
		}

		return creds, factory, nil

	case "gitlab":
		creds, err := glhost.NewStaticCredentials(
			cfg.GitLab.AccessToken,
		)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		factory := func(
			token string,
		) (hosting.Host, error) {
			return glhost.NewHost(glhost.Config{
				Host:        cfg.GitLab.Host,
				Project:     cfg.GitLab.Project,
				AccessToken: token,
			})
		}

		return creds, factory, nil

	default:
		return nil, nil, fmt.Errorf(
			"%s: unknown provider %q",
			errCtx, cfg.Provider,
		)
	}
}
