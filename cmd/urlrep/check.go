package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/reputation"
)

// verdict is one output record.
type verdict struct {
	URL string `json:"url"`
	domain.ValidationResult
}

func newCheckCmd(app *Application) *cobra.Command {
	var (
		file    string
		format  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "check [url...]",
		Short: "Validate URLs against the policy",
		Long:  "Validates each URL given as an argument or read from --file (one per line, '-' for stdin). Exits 1 when any URL is blocked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = app.config.Check.Format
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}
			if workers <= 0 {
				workers = app.config.Check.Workers
			}

			urls := append([]string(nil), args...)
			if file != "" {
				more, err := readURLs(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				urls = append(urls, more...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given")
			}

			engine, _, err := app.buildEngine()
			if err != nil {
				return err
			}
			results := checkAll(engine, urls, workers)
			if err := writeVerdicts(cmd.OutOrStdout(), results, format); err != nil {
				return err
			}
			for _, r := range results {
				if r.IsBlocked() {
					return errBlocked
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from file, one per line ('-' for stdin)")
	cmd.Flags().StringVarP(&format, "format", "o", "", "output format: text or json (overrides URLREP_FORMAT)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent validations (overrides URLREP_WORKERS)")
	return cmd
}

// checkAll validates urls concurrently and returns verdicts in input order.
func checkAll(engine *reputation.Engine, urls []string, workers int) []verdict {
	mapper := iter.Mapper[string, verdict]{MaxGoroutines: workers}
	return mapper.Map(urls, func(u *string) verdict {
		return verdict{URL: *u, ValidationResult: engine.Validate(*u)}
	})
}

// readURLs returns the non-blank, non-comment lines of path.
func readURLs(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return out, nil
}

func writeVerdicts(w io.Writer, results []verdict, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, formatText(r)); err != nil {
			return err
		}
	}
	return nil
}

func formatText(r verdict) string {
	if !r.IsBlocked() {
		return "ALLOW " + r.URL
	}
	return fmt.Sprintf("BLOCK %s: %s (%s)", r.URL, r.Violation.Reason, r.Violation.Description)
}
