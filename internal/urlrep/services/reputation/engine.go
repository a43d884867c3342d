// Package reputation implements the pre-fetch URL gate: an ordered pipeline
// of pure checks that turns a candidate URL into exactly one verdict.
package reputation

import (
	"fmt"
	"net/netip"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainset"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/tld"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/heuristic"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/pattern"
)

// Options carries the collaborators an Engine is built with. Every field is
// optional.
type Options struct {
	Logger       log.Logger
	TLD          tld.Table
	BloomFactory domainlist.BloomFactory
	FPRate       float64
	// Checks replaces the standard heuristic checks when non-empty.
	Checks []heuristic.Check
}

// Engine evaluates URLs against one immutable policy. It holds no mutable
// state, so Validate may be called from any number of goroutines.
type Engine struct {
	policy    domain.Policy
	logger    log.Logger
	whitelist *domainset.Set
	blocked   *domainset.Set
	allowed   *pattern.Matcher
	denied    *pattern.Matcher
	filter    *heuristic.Filter
	steps     []step
}

// step is one stage of the pipeline. done reports whether the stage reached
// a verdict; later stages never run once one has.
type step struct {
	name string
	run  func(e *Engine, u *domain.ParsedURL) (res domain.ValidationResult, done bool)
}

// pipeline is the evaluation order after parsing. Whitelist and allow
// patterns outrank every block; earlier blocks outrank later ones.
var pipeline = []step{
	{"whitelist", (*Engine).checkWhitelist},
	{"allow_pattern", (*Engine).checkAllowPattern},
	{"scheme", (*Engine).checkScheme},
	{"blocked_domain", (*Engine).checkBlockedDomain},
	{"blocked_pattern", (*Engine).checkBlockedPattern},
	{"heuristic", (*Engine).checkHeuristics},
}

// New validates policy and compiles it into an Engine. It fails on an invalid
// entropy threshold, an unknown pattern mode or a pattern that does not compile.
func New(policy domain.Policy, opts Options) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	allowed, err := pattern.New(policy.PatternMode, policy.AllowedPatterns)
	if err != nil {
		return nil, fmt.Errorf("allowed_patterns: %w", err)
	}
	denied, err := pattern.New(policy.PatternMode, policy.BlockedPatterns)
	if err != nil {
		return nil, fmt.Errorf("blocked_patterns: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	fpRate := opts.FPRate
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = domainset.DefaultFPRate
	}

	var filter *heuristic.Filter
	if len(opts.Checks) > 0 {
		filter = heuristic.NewFilterWithChecks(opts.Checks...)
	} else {
		filter = heuristic.NewFilter(policy.EntropyThreshold, opts.TLD)
	}

	e := &Engine{
		policy:    policy,
		logger:    logger,
		whitelist: domainset.New(canonicalRules(policy.WhitelistDomains), opts.BloomFactory, fpRate),
		blocked:   domainset.New(canonicalRules(policy.BlockedDomains), opts.BloomFactory, fpRate),
		allowed:   allowed,
		denied:    denied,
		filter:    filter,
		steps:     pipeline,
	}
	logger.Debug(map[string]any{
		"whitelist":        e.whitelist.Len(),
		"blocked":          e.blocked.Len(),
		"allowed_patterns": allowed.Len(),
		"blocked_patterns": denied.Len(),
		"pattern_mode":     policy.PatternMode.String(),
		"heuristics":       policy.UseHeuristicCheck,
		"checks":           filter.Names(),
	}, "engine_built")
	return e, nil
}

// Validate returns the verdict for rawURL. It never fails: every problem with
// the input is reported as a violation.
func (e *Engine) Validate(rawURL string) domain.ValidationResult {
	u, v := parseURL(rawURL)
	if v != nil {
		e.logVerdict("parse", rawURL, v)
		return domain.Block(v)
	}
	for _, s := range e.steps {
		if res, done := s.run(e, &u); done {
			e.logVerdict(s.name, rawURL, res.Violation)
			return res
		}
	}
	e.logVerdict("default", rawURL, nil)
	return domain.Allow()
}

// Policy returns the policy the engine was built from.
func (e *Engine) Policy() domain.Policy { return e.policy }

// Stats summarizes the compiled policy.
type Stats struct {
	WhitelistRules  int `json:"whitelist_rules"`
	BlockedRules    int `json:"blocked_rules"`
	AllowedPatterns int `json:"allowed_patterns"`
	BlockedPatterns int `json:"blocked_patterns"`
}

// Stats returns rule and pattern counts.
func (e *Engine) Stats() Stats {
	return Stats{
		WhitelistRules:  e.whitelist.Len(),
		BlockedRules:    e.blocked.Len(),
		AllowedPatterns: e.allowed.Len(),
		BlockedPatterns: e.denied.Len(),
	}
}

func (e *Engine) checkWhitelist(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	if e.whitelist.Contains(u.Host) {
		return domain.Allow(), true
	}
	return domain.ValidationResult{}, false
}

func (e *Engine) checkAllowPattern(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	if _, ok := e.allowed.Match(u.Full); ok {
		return domain.Allow(), true
	}
	return domain.ValidationResult{}, false
}

func (e *Engine) checkScheme(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	switch u.Scheme {
	case "https":
		return domain.ValidationResult{}, false
	case "http":
		if !e.policy.BlockNonSecureHTTP {
			return domain.ValidationResult{}, false
		}
	}
	// unsupported schemes are refused whatever the http setting
	return domain.Block(urlViolation(domain.CodeNonSecureHTTP, u.Raw)), true
}

func (e *Engine) checkBlockedDomain(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	rule, ok := e.blocked.Match(u.Host)
	if !ok {
		return domain.ValidationResult{}, false
	}
	return domain.Block(domain.NewViolation(domain.CodeBlockedDomain,
		fmt.Sprintf("Domain %s is blocked", u.Host),
		map[string]string{
			"domain":             u.Host,
			"registrable_domain": utils.ApexDomain(u.Host),
			"rule":               rule.String(),
			"source":             rule.Source,
		})), true
}

func (e *Engine) checkBlockedPattern(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	p, ok := e.denied.Match(u.Full)
	if !ok {
		return domain.ValidationResult{}, false
	}
	return domain.Block(domain.NewViolation(domain.CodeBlockedPattern,
		fmt.Sprintf("URL matches blocked pattern: %s", p),
		map[string]string{"url": u.Raw, "pattern": p})), true
}

func (e *Engine) checkHeuristics(u *domain.ParsedURL) (domain.ValidationResult, bool) {
	if !e.policy.UseHeuristicCheck || u.HostKind.IsIP() {
		return domain.ValidationResult{}, false
	}
	if v := e.filter.Run(u.Host); v != nil {
		return domain.Block(v), true
	}
	return domain.ValidationResult{}, false
}

func (e *Engine) logVerdict(stage, rawURL string, v *domain.Violation) {
	fields := map[string]any{"url": rawURL, "stage": stage}
	if v != nil {
		fields["reason"] = v.Reason
		e.logger.Debug(fields, "url_blocked")
		return
	}
	e.logger.Debug(fields, "url_allowed")
}

// canonicalRules returns rules with names in the form hosts are looked up in.
func canonicalRules(rules []domain.DomainRule) []domain.DomainRule {
	out := make([]domain.DomainRule, 0, len(rules))
	for _, r := range rules {
		name := utils.CanonicalHost(r.Name)
		if addr, err := netip.ParseAddr(name); err == nil {
			name = addr.String()
		} else {
			name = utils.ASCIIHost(name)
		}
		if name == "" {
			continue
		}
		r.Name = name
		out = append(out, r)
	}
	return out
}
