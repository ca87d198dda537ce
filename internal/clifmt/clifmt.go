// Package clifmt colours terminal output. Colour is off when NO_COLOR is
// set, TERM is dumb or stdout is not a terminal.
package clifmt

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

type style string

const (
	styleHeader  style = "1;36"
	styleSuccess style = "32"
	styleWarn    style = "33"
	styleFail    style = "31"
	styleDim     style = "2"
	styleKey     style = "1;33"
)

func Headerf(format string, args ...any) string {
	return paint(styleHeader, fmt.Sprintf(format, args...))
}

func Success(text string) string { return paint(styleSuccess, text) }

func Warn(text string) string { return paint(styleWarn, text) }

// Fail marks rejections and failed commands.
func Fail(text string) string { return paint(styleFail, text) }

func Dim(text string) string { return paint(styleDim, text) }

func Key(text string) string { return paint(styleKey, text) }

// Prompt renders the interactive prompt for a session sitting in cwd.
func Prompt(cwd string) string {
	return Key(cwd) + " > "
}

func paint(s style, text string) string {
	if text == "" || !Enabled() {
		return text
	}
	return "\x1b[" + string(s) + "m" + text + "\x1b[0m"
}

// Enabled reports whether output to stdout should be coloured.
func Enabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
