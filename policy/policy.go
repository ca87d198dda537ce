// Package policy holds the static command policy: which commands may run,
// how aliases resolve, which raw-text patterns are refused outright, how long
// a command may run and which directory subtree it is confined to.
//
// A Policy is built once from a Spec and never mutated afterwards, so it can
// be shared between sessions without locking.
package policy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const DefaultTimeoutSeconds = 30

// Pattern is one forbidden-pattern entry. Exactly one of Substring or Regex
// is set.
type Pattern struct {
	Name      string `yaml:"name" mapstructure:"name" json:"name"`
	Substring string `yaml:"substring,omitempty" mapstructure:"substring" json:"substring,omitempty"`
	Regex     string `yaml:"regex,omitempty" mapstructure:"regex" json:"regex,omitempty"`
}

type matcher struct {
	name      string
	substring string
	re        *regexp.Regexp
}

func (m matcher) match(s string) bool {
	if m.re != nil {
		return m.re.MatchString(s)
	}
	return strings.Contains(s, m.substring)
}

type Policy struct {
	allowed   map[string]bool
	aliases   map[string]string
	dirCmds   map[string]bool
	forbidden []matcher
	timeout   int
	root      string
	confine   bool

	spec Spec
}

// New validates spec and builds an immutable Policy from it.
func New(spec Spec) (*Policy, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(strings.TrimSpace(spec.RootDir))
	if err != nil {
		return nil, fmt.Errorf("invalid root_dir: %w", err)
	}
	p := &Policy{
		allowed: make(map[string]bool, len(spec.AllowedCommands)),
		aliases: make(map[string]string, len(spec.Aliases)),
		dirCmds: make(map[string]bool, len(spec.DirectoryCommands)),
		timeout: spec.TimeoutSeconds,
		root:    filepath.Clean(root),
		confine: spec.ConfineArguments,
	}
	for _, c := range spec.AllowedCommands {
		p.allowed[c] = true
	}
	for alias, canonical := range spec.Aliases {
		p.aliases[alias] = canonical
	}
	for _, c := range spec.DirectoryCommands {
		p.dirCmds[c] = true
	}
	for _, fp := range spec.ForbiddenPatterns {
		m := matcher{name: fp.Name, substring: fp.Substring}
		if fp.Regex != "" {
			re, err := regexp.Compile(fp.Regex)
			if err != nil {
				return nil, fmt.Errorf("forbidden pattern %q: %w", fp.Name, err)
			}
			m.re = re
		}
		p.forbidden = append(p.forbidden, m)
	}
	p.spec = spec.clone()
	p.spec.RootDir = p.root
	return p, nil
}

// Allows reports whether canonical is a member of the allowlist.
func (p *Policy) Allows(canonical string) bool {
	return p != nil && p.allowed[canonical]
}

// Canonical resolves token through the alias map. Tokens without an alias
// are returned unchanged.
func (p *Policy) Canonical(token string) string {
	if p == nil {
		return token
	}
	if c, ok := p.aliases[token]; ok {
		return c
	}
	return token
}

// ChangesDirectory reports whether canonical names a directory-changing command.
func (p *Policy) ChangesDirectory(canonical string) bool {
	return p != nil && p.dirCmds[canonical]
}

// FirstForbidden returns the name of the first forbidden pattern found in raw.
func (p *Policy) FirstForbidden(raw string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, m := range p.forbidden {
		if m.match(raw) {
			return m.name, true
		}
	}
	return "", false
}

func (p *Policy) TimeoutSeconds() int { return p.timeout }

func (p *Policy) Timeout() time.Duration {
	return time.Duration(p.timeout) * time.Second
}

// ConfineArguments reports whether path-looking arguments of ordinary
// commands are held to the root as well.
func (p *Policy) ConfineArguments() bool { return p != nil && p.confine }

// RootDir is the absolute, cleaned confinement root.
func (p *Policy) RootDir() string { return p.root }

// AllowedCommands returns the allowlist sorted by name.
func (p *Policy) AllowedCommands() []string {
	out := make([]string, 0, len(p.allowed))
	for c := range p.allowed {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Spec returns a copy of the spec the policy was built from, with RootDir
// made absolute.
func (p *Policy) Spec() Spec {
	return p.spec.clone()
}
