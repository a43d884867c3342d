package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/bolt"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/parsers"
)

func newCompileCmd(app *Application) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile --out FILE LIST...",
		Short: "Compile domain list files into a blocked-domain snapshot",
		Long:  "Reads plain or hosts-format domain lists and writes them into a snapshot database that a policy references with domain_db.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			now := app.clock.Now()

			var rules []domain.DomainRule
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open domain list: %w", err)
				}
				parsed, err := parsers.ParseDomainList(f, "file:"+path, app.logger, now)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("read domain list %s: %w", path, err)
				}
				rules = append(rules, parsed...)
			}

			store, err := bolt.New(out)
			if err != nil {
				return err
			}
			defer store.Close()

			next := store.Stats().Version + 1
			if err := store.RebuildAll(rules, next, now.Unix()); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			stats := store.Stats()
			app.logger.Info(map[string]any{
				"out":     out,
				"exact":   stats.ExactCount,
				"suffix":  stats.SuffixCount,
				"version": stats.Version,
			}, "snapshot_compiled")

			b, err := json.Marshal(map[string]any{
				"out":          out,
				"exact":        stats.ExactCount,
				"suffix":       stats.SuffixCount,
				"version":      stats.Version,
				"updated_unix": stats.UpdatedUnix,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "snapshot database to write")
	return cmd
}
