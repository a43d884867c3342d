package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/clock"
	"github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/bolt"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/parsers"
)

const (
	sourceWhitelist = "policy:whitelist_domains"
	sourceBlocked   = "policy:blocked_domains"
)

// Loader turns policy files into domain.Policy values. The zero value is not
// usable; construct with NewLoader.
type Loader struct {
	logger log.Logger
	clock  clock.Clock
	// openDB opens a compiled snapshot; replaced in tests.
	openDB func(path string) (domainlist.Store, error)
	// DBOverride replaces the document's domain_db when set.
	DBOverride string
}

// NewLoader returns a Loader that stamps rules with clk and logs to logger.
func NewLoader(logger log.Logger, clk clock.Clock) *Loader {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Loader{logger: logger, clock: clk, openDB: bolt.OpenReadOnly}
}

// Load reads the policy at path and every file it references.
func (l *Loader) Load(path string) (domain.Policy, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return domain.Policy{}, err
	}
	return l.Build(doc, filepath.Dir(path))
}

// ReadFile parses and validates the policy document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Build compiles doc into a policy. Relative file references are resolved
// against baseDir.
func (l *Loader) Build(doc *Document, baseDir string) (domain.Policy, error) {
	p, err := doc.Scalars()
	if err != nil {
		return domain.Policy{}, err
	}
	now := l.clock.Now()

	p.WhitelistDomains, err = l.inlineRules(doc.WhitelistDomains, sourceWhitelist, now)
	if err != nil {
		return domain.Policy{}, err
	}
	p.BlockedDomains, err = l.inlineRules(doc.BlockedDomains, sourceBlocked, now)
	if err != nil {
		return domain.Policy{}, err
	}

	for _, f := range doc.WhitelistFiles {
		rules, err := l.readList(resolve(baseDir, f), now)
		if err != nil {
			return domain.Policy{}, err
		}
		p.WhitelistDomains = append(p.WhitelistDomains, rules...)
	}
	for _, f := range doc.BlockedFiles {
		rules, err := l.readList(resolve(baseDir, f), now)
		if err != nil {
			return domain.Policy{}, err
		}
		p.BlockedDomains = append(p.BlockedDomains, rules...)
	}

	dbPath := l.DBOverride
	if dbPath == "" && doc.DomainDB != "" {
		dbPath = resolve(baseDir, doc.DomainDB)
	}
	if dbPath != "" {
		rules, err := l.readSnapshot(dbPath)
		if err != nil {
			return domain.Policy{}, err
		}
		p.BlockedDomains = append(p.BlockedDomains, rules...)
	}

	if err := p.Validate(); err != nil {
		return domain.Policy{}, err
	}
	l.logger.Info(map[string]any{
		"whitelist":        len(p.WhitelistDomains),
		"blocked":          len(p.BlockedDomains),
		"allowed_patterns": len(p.AllowedPatterns),
		"blocked_patterns": len(p.BlockedPatterns),
		"pattern_mode":     p.PatternMode.String(),
	}, "policy_loaded")
	return p, nil
}

// inlineRules converts domain entries written in the policy itself. Unlike
// list files, an unusable inline entry is an error.
func (l *Loader) inlineRules(entries []string, source string, now time.Time) ([]domain.DomainRule, error) {
	out := make([]domain.DomainRule, 0, len(entries))
	for _, raw := range entries {
		name := parsers.NormalizeEntry(raw)
		if name == "" {
			return nil, fmt.Errorf("%s: empty domain entry %q", source, raw)
		}
		r, err := domain.NewDomainRule(name, domain.RuleKindFromRaw(raw), source, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: %w", source, raw, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *Loader) readList(path string, now time.Time) ([]domain.DomainRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain list: %w", err)
	}
	defer f.Close()

	rules, err := parsers.ParseDomainList(f, "file:"+path, l.logger, now)
	if err != nil {
		return nil, fmt.Errorf("read domain list %s: %w", path, err)
	}
	return rules, nil
}

func (l *Loader) readSnapshot(path string) ([]domain.DomainRule, error) {
	store, err := l.openDB(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rules, err := store.Rules()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	stats := store.Stats()
	l.logger.Debug(map[string]any{
		"path":    path,
		"exact":   stats.ExactCount,
		"suffix":  stats.SuffixCount,
		"version": stats.Version,
	}, "snapshot_loaded")
	return rules, nil
}
