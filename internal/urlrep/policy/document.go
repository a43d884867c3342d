// Package policy reads YAML policy documents and compiles them into the
// domain.Policy value an engine is built from.
package policy

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// Document is the on-disk policy shape. Pointer fields distinguish "unset"
// from an explicit zero so documented defaults can be applied.
type Document struct {
	WhitelistDomains   []string `yaml:"whitelist_domains" validate:"dive,required"`
	AllowedPatterns    []string `yaml:"allowed_patterns" validate:"dive,required"`
	BlockedDomains     []string `yaml:"blocked_domains" validate:"dive,required"`
	BlockedPatterns    []string `yaml:"blocked_patterns" validate:"dive,required"`
	PatternMode        string   `yaml:"pattern_mode" validate:"omitempty,oneof=regex substring"`
	UseHeuristicCheck  *bool    `yaml:"use_heuristic_check"`
	EntropyThreshold   *float64 `yaml:"entropy_threshold" validate:"omitempty,gt=0"`
	BlockNonSecureHTTP *bool    `yaml:"block_non_secure_http"`

	WhitelistFiles []string `yaml:"whitelist_files" validate:"dive,required"`
	BlockedFiles   []string `yaml:"blocked_files" validate:"dive,required"`
	DomainDB       string   `yaml:"domain_db"`
}

// Parse decodes one YAML document from r. Unknown keys are rejected so a
// typo never silently disables a rule. An empty document yields defaults.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return &doc, nil
}

// Validate checks field constraints with validator tags.
func (d *Document) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(d); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	return nil
}

// Scalars returns a domain.Policy holding the document's scalar settings
// with defaults applied. Domain rules are filled in by the Loader.
func (d *Document) Scalars() (domain.Policy, error) {
	p := domain.DefaultPolicy()
	mode, err := domain.ParsePatternMode(d.PatternMode)
	if err != nil {
		return domain.Policy{}, err
	}
	p.PatternMode = mode
	p.AllowedPatterns = append([]string(nil), d.AllowedPatterns...)
	p.BlockedPatterns = append([]string(nil), d.BlockedPatterns...)
	if d.UseHeuristicCheck != nil {
		p.UseHeuristicCheck = *d.UseHeuristicCheck
	}
	if d.EntropyThreshold != nil {
		p.EntropyThreshold = *d.EntropyThreshold
	}
	if d.BlockNonSecureHTTP != nil {
		p.BlockNonSecureHTTP = *d.BlockNonSecureHTTP
	}
	return p, nil
}

// Files returns every file the document depends on, resolved against
// baseDir: list files first, then the snapshot database.
func (d *Document) Files(baseDir string) []string {
	out := make([]string, 0, len(d.WhitelistFiles)+len(d.BlockedFiles)+1)
	for _, f := range d.WhitelistFiles {
		out = append(out, resolve(baseDir, f))
	}
	for _, f := range d.BlockedFiles {
		out = append(out, resolve(baseDir, f))
	}
	if d.DomainDB != "" {
		out = append(out, resolve(baseDir, d.DomainDB))
	}
	return out
}

// resolve makes a relative path relative to baseDir.
func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
