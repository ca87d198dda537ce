package guard

import "testing"

func TestParseSimple_Words(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		text    string
		literal bool
		braces  bool
	}{
		{name: "plain", raw: "cat notes.txt", text: "notes.txt", literal: true},
		{name: "single_quoted", raw: "cat 'my notes.txt'", text: "my notes.txt", literal: true},
		{name: "backslash_kept", raw: `cat sub\notes.txt`, text: `sub\notes.txt`, literal: true},
		{name: "brace_list", raw: "cat {/etc/passwd,x}", text: "{/etc/passwd,x}", braces: true},
		{name: "brace_sequence", raw: "cat f{1..3}", text: "f{1..3}", braces: true},
		{name: "quoted_braces", raw: "cat '{a,b}'", text: "{a,b}", literal: true},
		{name: "unbalanced_brace", raw: "cat a{b", text: "a{b", literal: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := parseSimple(tc.raw)
			if err != nil {
				t.Fatalf("parseSimple(%q): %v", tc.raw, err)
			}
			if len(p.words) != 2 {
				t.Fatalf("parseSimple(%q): got %d words", tc.raw, len(p.words))
			}
			w := p.words[1]
			if w.text != tc.text || w.literal != tc.literal || w.braces != tc.braces {
				t.Fatalf("parseSimple(%q)=%+v, want text=%q literal=%v braces=%v", tc.raw, w, tc.text, tc.literal, tc.braces)
			}
		})
	}
}
