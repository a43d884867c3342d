package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/clock"
	"github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/config"
	"github.com/haukened/rr-urlrep/internal/urlrep/policy"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/bloom"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/tld"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/reputation"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "urlrep"
)

// errBlocked signals that at least one URL was blocked. It maps to exit
// status 1 without an error message.
var errBlocked = errors.New("one or more URLs blocked")

// Application holds the loaded configuration and shared collaborators.
type Application struct {
	config *config.AppConfig
	logger log.Logger
	clock  clock.Clock
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit status.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errBlocked):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
}

// newRootCmd builds the command tree. Flags override URLREP_* settings.
func newRootCmd() *cobra.Command {
	app := &Application{clock: clock.RealClock{}}
	var (
		policyPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "Pre-fetch URL reputation gate",
		Long:          "Decides whether a URL may be fetched under a reputation policy: domain lists, patterns, scheme rules and domain heuristics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if policyPath != "" {
				cfg.Policy.Path = policyPath
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
				return fmt.Errorf("logging configuration error: %w", err)
			}
			app.config = cfg
			app.logger = log.GetLogger()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&policyPath, "policy", "p", "", "policy file (overrides URLREP_POLICY)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides URLREP_LOG_LEVEL)")

	root.AddCommand(
		newCheckCmd(app),
		newCompileCmd(app),
		newWatchCmd(app),
		newVersionCmd(),
	)
	return root
}

// buildEngine loads the configured policy and compiles it. It also returns
// every file the engine was built from, for the watcher.
func (app *Application) buildEngine() (*reputation.Engine, []string, error) {
	path := app.config.Policy.Path
	doc, err := policy.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	loader := policy.NewLoader(app.logger, app.clock)
	loader.DBOverride = app.config.Policy.DB
	dir := filepath.Dir(path)
	p, err := loader.Build(doc, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	engine, err := reputation.New(p, reputation.Options{
		Logger:       app.logger,
		TLD:          tld.Default(),
		BloomFactory: bloom.NewFactory(),
		FPRate:       app.config.Policy.BloomFPRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	files := append([]string{path}, doc.Files(dir)...)
	if app.config.Policy.DB != "" {
		files = append(files, app.config.Policy.DB)
	}
	return engine, files, nil
}
