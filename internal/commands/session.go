package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"anthemengine/internal/app"
	"anthemengine/internal/config"
	"anthemengine/internal/logging"
)

// ErrNoSession indicates a command ran without the root pre-run loading config.
var ErrNoSession = errors.New("configuration not loaded")

// closeTimeout bounds how long shutdown waits for in-flight generations.
const closeTimeout = 30 * time.Second

type globalFlags struct {
	configPath string
	logLevel   string
}

// session holds the resolved configuration for one command invocation.
type session struct {
	Config     *config.Config
	ConfigPath string
	Logger     *logrus.Logger
	getenv     func(string) string
}

type sessionKey struct{}

// preRunLoad resolves config and logging before any subcommand runs.
func preRunLoad(getenv func(string) string, flags *globalFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env := func(key string) string {
			switch {
			case key == config.EnvConfig && flags.configPath != "":
				return flags.configPath
			case key == config.EnvLogLevel && flags.logLevel != "":
				return flags.logLevel
			}
			return getenv(key)
		}

		cfg, path, err := config.Resolve(env)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		s := &session{Config: cfg, ConfigPath: path, Logger: logger, getenv: env}
		cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
		return nil
	}
}

func requireSession(cmd *cobra.Command) (*session, error) {
	if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
		return s, nil
	}
	return nil, ErrNoSession
}

// openApp builds the App for a command; callers must close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	s, err := requireSession(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(s.Config, s.Logger, s.getenv, app.Options{})
}

// withApp runs fn with an open App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), closeTimeout)
		defer cancel()
		if cerr := a.Close(ctx); cerr != nil {
			a.Logger.WithError(cerr).Warn("close")
		}
	}()
	return fn(a)
}
