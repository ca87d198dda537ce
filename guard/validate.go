package guard

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
)

// Validate decides whether raw may run under pol in the session's current
// directory. It has no side effects and is deterministic for a given policy
// and session directory. Every refusal is a *Rejection.
//
// Order matters: forbidden patterns are scanned before the allowlist so an
// injection attempt is reported as such even when it starts with an allowed
// command name, and the allowlist is checked before the syntax so an unknown
// command is never reported as malformed.
func Validate(raw string, pol *policy.Policy, sess *session.State) (Allowed, error) {
	if strings.TrimSpace(raw) == "" {
		return Allowed{}, reject(ReasonEmptyCommand, "no command was provided")
	}

	if name, hit := pol.FirstForbidden(raw); hit {
		return Allowed{}, reject(ReasonInjectionPattern, "command contains forbidden pattern %q", name)
	}

	identity := strings.Fields(raw)[0]
	canonical := pol.Canonical(identity)
	if !pol.Allows(canonical) {
		if canonical != identity {
			return Allowed{}, reject(ReasonNotInAllowlist, "command %q (alias of %q) is not in the allowlist", identity, canonical)
		}
		return Allowed{}, reject(ReasonNotInAllowlist, "command %q is not in the allowlist", identity)
	}

	cmd, err := parseSimple(raw)
	if err != nil {
		return Allowed{}, reject(ReasonMalformedSyntax, "%v", err)
	}

	a := Allowed{
		raw:       raw,
		identity:  identity,
		canonical: canonical,
		cwd:       sess.Current(),
	}

	for _, r := range cmd.redirects {
		if _, rej := resolveInside(r, sess); rej != nil {
			return Allowed{}, rej
		}
	}

	args := cmd.words[1:]
	if pol.ChangesDirectory(canonical) {
		target, rej := directoryTarget(args, sess)
		if rej != nil {
			return Allowed{}, rej
		}
		a.changesWD = true
		a.target = target
	} else if pol.ConfineArguments() {
		if rej := confineArguments(args, sess); rej != nil {
			return Allowed{}, rej
		}
	}
	return a, nil
}

var providerQualified = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*:`)

// directoryTarget finds the destination of a directory-changing command.
// Every positional argument and every -Path/-LiteralPath value must resolve
// inside the root; the first one is the target.
func directoryTarget(args []word, sess *session.State) (string, *Rejection) {
	var targets []word
	for i := 0; i < len(args); i++ {
		w := args[i]
		if !w.literal || !strings.HasPrefix(w.text, "-") || w.text == "-" {
			targets = append(targets, w)
			continue
		}
		name, value, hasValue := strings.Cut(w.text, ":")
		if hasValue {
			targets = append(targets, word{text: value, literal: w.literal})
			continue
		}
		if isPathParameter(name) && i+1 < len(args) {
			targets = append(targets, args[i+1])
			i++
		}
	}
	if len(targets) == 0 {
		return "", confinement("directory change without an explicit target is not permitted")
	}
	resolved := ""
	for _, t := range targets {
		p, rej := resolveInside(t, sess)
		if rej != nil {
			return "", rej
		}
		if resolved == "" {
			resolved = p
		}
	}
	return resolved, nil
}

func isPathParameter(name string) bool {
	switch strings.ToLower(name) {
	case "-path", "-literalpath", "-lp", "-pspath":
		return true
	}
	return false
}

func resolveInside(w word, sess *session.State) (string, *Rejection) {
	if !w.literal {
		return "", confinement("path %q depends on runtime expansion and cannot be confined", w.text)
	}
	t := w.text
	switch {
	case t == "":
		return "", confinement("empty path argument")
	case t == "-" || t == "+":
		return "", confinement("location history (%q) is not permitted", t)
	case strings.HasPrefix(t, "~"):
		return "", confinement("home-relative path %q is not permitted", t)
	}
	resolved := ""
	for _, r := range pathReadings(t) {
		if !filepath.IsAbs(r) && providerQualified.MatchString(r) {
			return "", confinement("provider path %q is not permitted", t)
		}
		p := sess.Resolve(r)
		if !sess.Contains(p) {
			return "", confinement("path %q resolves outside the root directory %s", t, sess.Root())
		}
		if resolved == "" {
			resolved = p
		}
	}
	return resolved, nil
}

// pathReadings lists every way a shell may read a backslash in t. pwsh
// treats it as a directory separator on every platform while bash treats it
// as an escape, so each reading has to stay inside the root. The separator
// reading comes first.
func pathReadings(t string) []string {
	if !strings.Contains(t, `\`) {
		return []string{t}
	}
	separated := strings.ReplaceAll(t, `\`, "/")
	var unescaped strings.Builder
	for i := 0; i < len(t); i++ {
		if t[i] == '\\' && i+1 < len(t) {
			i++
		}
		unescaped.WriteByte(t[i])
	}
	return []string{separated, unescaped.String(), t}
}

// confineArguments applies the root confinement to path-looking arguments of
// commands that do not change directory. It is a best-effort check over
// literal words; the allowlist remains the primary boundary.
func confineArguments(args []word, sess *session.State) *Rejection {
	for _, w := range args {
		text := w.text
		if w.literal && strings.HasPrefix(text, "-") {
			_, value, ok := strings.Cut(text, ":")
			if !ok {
				continue
			}
			text = value
		}
		if !w.literal {
			if w.leadingVar || w.braces || strings.ContainsAny(text, `/\`) {
				return confinement("argument %q depends on runtime expansion and cannot be confined", w.text)
			}
			continue
		}
		if !looksLikePath(text) {
			continue
		}
		if _, rej := resolveInside(word{text: text, literal: true}, sess); rej != nil {
			return rej
		}
	}
	return nil
}

func looksLikePath(s string) bool {
	if s == "" {
		return false
	}
	if s == ".." || strings.HasPrefix(s, "~") || filepath.IsAbs(s) {
		return true
	}
	return strings.ContainsAny(s, `/\`)
}

func confinement(format string, args ...any) *Rejection {
	r := reject(ReasonNotInAllowlist, format, args...)
	r.Confinement = true
	return r
}
