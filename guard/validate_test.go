package guard

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
)

func newTestPolicy(t *testing.T, mutate func(*policy.Spec)) (*policy.Policy, *session.State) {
	t.Helper()
	sess, err := session.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	spec := policy.Default(sess.Root())
	if mutate != nil {
		mutate(&spec)
	}
	pol, err := policy.New(spec)
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	if err := os.Mkdir(filepath.Join(sess.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	return pol, sess
}

func TestValidate(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	cases := []struct {
		name        string
		raw         string
		code        ReasonCode // empty means allowed
		confinement bool
		canonical   string
		detail      string
	}{
		{name: "plain_cmdlet", raw: "Get-ChildItem", canonical: "Get-ChildItem"},
		{name: "alias", raw: "ls", canonical: "Get-ChildItem"},
		{name: "with_args", raw: "Get-ChildItem -Recurse -Filter '*.txt'", canonical: "Get-ChildItem"},
		{name: "quoted_file", raw: `Get-Content "my notes.txt"`, canonical: "Get-Content"},
		{name: "empty", raw: "", code: ReasonEmptyCommand},
		{name: "whitespace", raw: " \t ", code: ReasonEmptyCommand},
		{name: "backtick", raw: "Get-Content `whoami`", code: ReasonInjectionPattern, detail: "backtick"},
		{name: "subexpression", raw: "Write-Output $(Get-Process)", code: ReasonInjectionPattern, detail: "command_substitution"},
		{name: "pipe_to_forbidden", raw: "Get-ChildItem | Remove-Item", code: ReasonInjectionPattern, detail: "pipe"},
		{name: "chain_after_allowed", raw: "ls; Remove-Item x", code: ReasonInjectionPattern, detail: "semicolon"},
		{name: "chain_before_allowed", raw: "Remove-Item x; ls", code: ReasonInjectionPattern, detail: "semicolon"},
		{name: "redirect", raw: "Write-Output hi > out.txt", code: ReasonInjectionPattern, detail: "output_redirect"},
		{name: "background", raw: "Get-Process &", code: ReasonInjectionPattern, detail: "background"},
		{name: "newline", raw: "ls\nRemove-Item x", code: ReasonInjectionPattern, detail: "newline"},
		{name: "not_allowed", raw: "Remove-Item file.txt", code: ReasonNotInAllowlist, detail: "Remove-Item"},
		{name: "case_sensitive", raw: "get-childitem", code: ReasonNotInAllowlist},
		{name: "unknown_alias", raw: "rm file.txt", code: ReasonNotInAllowlist, detail: `"rm"`},
		{name: "subshell", raw: "Get-ChildItem (Get-Item x)", code: ReasonMalformedSyntax},
		{name: "unbalanced_quote", raw: "Get-Content 'x", code: ReasonMalformedSyntax},
		{name: "assignment_prefix", raw: "X=1 Get-Date", code: ReasonNotInAllowlist, detail: `"X=1"`},
		{name: "cd_child", raw: "Set-Location sub", canonical: "Set-Location"},
		{name: "cd_alias_child", raw: "cd sub", canonical: "Set-Location"},
		{name: "cd_dot", raw: "cd .", canonical: "Set-Location"},
		{name: "cd_escape", raw: "Set-Location ../../etc", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_parent_of_root", raw: "cd ..", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_abs_outside", raw: "Set-Location /etc", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_no_target", raw: "Set-Location", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_home", raw: "cd ~", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_home_child", raw: "cd ~/x", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_history", raw: "cd -", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_provider", raw: `Set-Location HKLM:\Software`, code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_drive", raw: `Set-Location C:\Windows`, code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_variable", raw: "Set-Location $HOME", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_path_param", raw: "Set-Location -Path ..", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_path_colon", raw: "Set-Location -LiteralPath:..", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_path_param_inside", raw: "Set-Location -Path sub", canonical: "Set-Location"},
		{name: "alias_to_unlisted", raw: "pushd sub", code: ReasonNotInAllowlist, detail: "Push-Location"},
		{name: "arg_escape", raw: "Get-Content ../secret.txt", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_abs_outside", raw: "Get-Content /etc/passwd", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_param_colon", raw: "Get-ChildItem -Path:../..", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_variable_path", raw: "Get-Content $env:USERPROFILE/x", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_inside", raw: "Get-Content sub/notes.txt", canonical: "Get-Content"},
		{name: "arg_plain_word", raw: "Write-Output hello", canonical: "Write-Output"},
		{name: "arg_backslash_escape", raw: `Get-Content ..\..\..\..\..\etc\passwd`, code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_backslash_copy", raw: `Copy-Item ..\..\..\..\etc\shadow x`, code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_backslash_escape", raw: `Set-Location ..\..\..\..\etc`, code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_backslash_parent", raw: `cd sub\..\..`, code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_backslash_inside", raw: `Get-Content sub\notes.txt`, canonical: "Get-Content"},
		{name: "cd_backslash_inside", raw: `cd .\sub`, canonical: "Set-Location"},
		{name: "arg_escaped_slash", raw: `cat \/etc/passwd`, code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_escaped_dots", raw: `cat sub/\.\./\.\./x`, code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_brace_expansion", raw: "cat {/etc/passwd,x}", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_brace_after_prefix", raw: "cat ..{/../../etc/passwd,}", code: ReasonNotInAllowlist, confinement: true},
		{name: "cd_brace_expansion", raw: "cd {sub,..}", code: ReasonNotInAllowlist, confinement: true},
		{name: "arg_quoted_braces", raw: "Write-Output '{a,b}'", canonical: "Write-Output"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Validate(tc.raw, pol, sess)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("Validate(%q): unexpected rejection %v", tc.raw, err)
				}
				if !a.Valid() || a.Raw() != tc.raw || a.Canonical() != tc.canonical {
					t.Fatalf("Validate(%q)=%+v", tc.raw, a)
				}
				return
			}
			var rej *Rejection
			if !errors.As(err, &rej) {
				t.Fatalf("Validate(%q): expected *Rejection, got %v", tc.raw, err)
			}
			if rej.Code != tc.code {
				t.Fatalf("Validate(%q): code=%s, want %s (%s)", tc.raw, rej.Code, tc.code, rej.Detail)
			}
			if rej.Confinement != tc.confinement {
				t.Fatalf("Validate(%q): confinement=%v, want %v", tc.raw, rej.Confinement, tc.confinement)
			}
			if tc.detail != "" && !strings.Contains(rej.Detail, tc.detail) {
				t.Fatalf("Validate(%q): detail %q does not mention %q", tc.raw, rej.Detail, tc.detail)
			}
			if a.Valid() {
				t.Fatal("rejected command returned a valid Allowed")
			}
		})
	}
}

func TestValidate_DirectoryTarget(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	a, err := Validate("cd sub", pol, sess)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !a.ChangesDirectory() {
		t.Fatal("expected a directory change")
	}
	if a.Target() != filepath.Join(sess.Root(), "sub") {
		t.Fatalf("target=%q", a.Target())
	}
	if a.Identity() != "cd" || a.ValidatedIn() != sess.Root() {
		t.Fatalf("identity=%q validatedIn=%q", a.Identity(), a.ValidatedIn())
	}

	b, err := Validate("Get-ChildItem sub", pol, sess)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if b.ChangesDirectory() || b.Target() != "" {
		t.Fatal("Get-ChildItem must not change directory")
	}
}

func TestValidate_RelativeToCurrentDirectory(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	if _, err := Validate("cd ..", pol, sess); err == nil {
		t.Fatal("cd .. from the root must be rejected")
	}
	if err := sess.Move(filepath.Join(sess.Root(), "sub")); err != nil {
		t.Fatal(err)
	}
	if _, err := Validate("cd ..", pol, sess); err != nil {
		t.Fatalf("cd .. from a subdirectory should be allowed: %v", err)
	}
	if _, err := Validate("Set-Location ../../etc", pol, sess); err == nil {
		t.Fatal("../../etc from a subdirectory must still be rejected")
	}
}

func TestValidate_ArgumentConfinementCanBeDisabled(t *testing.T) {
	pol, sess := newTestPolicy(t, func(s *policy.Spec) { s.ConfineArguments = false })
	if _, err := Validate("Get-Content ../secret.txt", pol, sess); err != nil {
		t.Fatalf("expected argument confinement to be off: %v", err)
	}
	var rej *Rejection
	if _, err := Validate("cd ..", pol, sess); !errors.As(err, &rej) || !rej.Confinement {
		t.Fatalf("directory targets are always confined, got %v", err)
	}
}

func TestValidate_RedirectTargetsAreConfined(t *testing.T) {
	pol, sess := newTestPolicy(t, func(s *policy.Spec) { s.ForbiddenPatterns = nil })
	if _, err := Validate("Write-Output hi > out.txt", pol, sess); err != nil {
		t.Fatalf("redirect inside the root should pass: %v", err)
	}
	var rej *Rejection
	if _, err := Validate("Write-Output hi > ../out.txt", pol, sess); !errors.As(err, &rej) || !rej.Confinement {
		t.Fatalf("redirect outside the root must be a confinement rejection, got %v", err)
	}
	for _, raw := range []string{"ls ; pwd", "ls && pwd", "ls | sort", "ls &"} {
		if _, err := Validate(raw, pol, sess); !errors.As(err, &rej) || rej.Code != ReasonMalformedSyntax {
			t.Fatalf("Validate(%q): expected MalformedSyntax without forbidden patterns, got %v", raw, err)
		}
	}
	for _, raw := range []string{"ls; pwd", "! ls", "{ ls; }"} {
		if _, err := Validate(raw, pol, sess); !errors.As(err, &rej) || rej.Code != ReasonNotInAllowlist {
			t.Fatalf("Validate(%q): expected NotInAllowlist for the leading token, got %v", raw, err)
		}
	}
}

func TestValidate_ForbiddenPatternWinsOverAllowlist(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	samples := map[string]string{
		"backtick":             "`",
		"command_substitution": "$(",
		"logical_and":          "&&",
		"logical_or":           "||",
		"pipe":                 "|",
		"semicolon":            ";",
		"append_redirect":      ">>",
		"output_redirect":      ">",
		"input_redirect":       "<",
		"background":           "&",
		"newline":              "\n",
	}
	for _, cmd := range pol.AllowedCommands() {
		for name, frag := range samples {
			raw := cmd + " x" + frag + "y"
			_, err := Validate(raw, pol, sess)
			var rej *Rejection
			if !errors.As(err, &rej) || rej.Code != ReasonInjectionPattern {
				t.Fatalf("Validate(%q) [%s]: expected InjectionPattern, got %v", raw, name, err)
			}
		}
	}
}

func TestValidate_UnknownLeadingTokenIsNotAllowed(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	for _, tok := range []string{"Remove-Item", "Invoke-Expression", "iex", "Start-Process", "rm", "del", "curl", "Get-ChildItemX", "./script.ps1"} {
		_, err := Validate(tok+" target", pol, sess)
		var rej *Rejection
		if !errors.As(err, &rej) || rej.Code != ReasonNotInAllowlist {
			t.Fatalf("Validate(%q): expected NotInAllowlist, got %v", tok, err)
		}
	}

	// Unknown commands are refused before the shell grammar is consulted.
	unparsable := []string{
		"Remove-Item (Get-Item x)",
		`Invoke-Expression "unterminated`,
		"Stop-Process -Id (1)",
		"rm 'open",
		"X=1 rm x",
	}
	for _, raw := range unparsable {
		_, err := Validate(raw, pol, sess)
		var rej *Rejection
		if !errors.As(err, &rej) || rej.Code != ReasonNotInAllowlist || rej.Confinement {
			t.Fatalf("Validate(%q): expected NotInAllowlist, got %v", raw, err)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	pol, sess := newTestPolicy(t, nil)
	inputs := []string{"Get-ChildItem", "ls -Force", "cd sub", "Remove-Item x", "cd ../..", "Get-Content `x`", "", "Get-ChildItem (x)"}
	for _, raw := range inputs {
		a1, err1 := Validate(raw, pol, sess)
		a2, err2 := Validate(raw, pol, sess)
		if !reflect.DeepEqual(a1, a2) {
			t.Fatalf("Validate(%q) not idempotent: %+v vs %+v", raw, a1, a2)
		}
		if !reflect.DeepEqual(err1, err2) {
			t.Fatalf("Validate(%q) errors differ: %v vs %v", raw, err1, err2)
		}
	}
	if sess.Current() != sess.Root() {
		t.Fatal("Validate changed the session")
	}
}
