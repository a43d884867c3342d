package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haukened/rr-urlrep/internal/urlrep/services/watch"
)

func newWatchCmd(app *Application) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Validate URLs from stdin, reloading the policy when it changes",
		Long:  "Reads one URL per line from stdin and writes one JSON verdict per line to stdout. Policy, list and snapshot files are watched and reloaded in place; a broken edit keeps the last good policy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case sig := <-sigChan:
					app.logger.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
					cancel()
				case <-ctx.Done():
				}
			}()

			return app.watch(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// watch serves verdicts for lines on in until in is exhausted or ctx ends.
func (app *Application) watch(ctx context.Context, in io.Reader, out io.Writer) error {
	reloader, err := watch.New(app.buildEngine, watch.Options{
		Debounce: app.config.Watch.Debounce,
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reloader.Run(runCtx); err != nil {
			app.logger.Error(map[string]any{"error": err.Error()}, "watcher stopped")
		}
	}()
	defer func() {
		stop()
		wg.Wait()
	}()

	app.logger.Info(map[string]any{"policy": app.config.Policy.Path}, "Watching policy")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-runCtx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	holder := reloader.Holder()
	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
				default:
				}
				return nil
			}
			u := strings.TrimSpace(line)
			if u == "" || strings.HasPrefix(u, "#") {
				continue
			}
			if err := enc.Encode(verdict{URL: u, ValidationResult: holder.Validate(u)}); err != nil {
				return err
			}
		}
	}
}
