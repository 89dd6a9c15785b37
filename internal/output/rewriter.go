package output

import (
	"regexp"
	"strings"
)

// Remote programs emit control sequences assuming they own the whole line.
// Multiplexed behind a prompt, a literal replay corrupts the layout, so
// every line is rewritten before printing.
var (
	// Erase-in-line, all variants: CSI K, CSI 0K, CSI 1K, CSI 2K.
	eraseLineRe = regexp.MustCompile(`\x1b\[[012]?K`)

	// Cursor motion, scrolling, screen clearing, position set, and
	// visibility/screen toggles. Deliberately excludes SGR (m) and
	// erase-in-line (K).
	cursorControlRe = regexp.MustCompile(`\x1b\[[0-9;]*[ABCDEFGHJSTfsu]|\x1b\[\?[0-9;]*[hl]`)

	// A carriage return whose next character is not the start of a control
	// sequence: the remote is redrawing the line from column 0.
	bareCarriageRe = regexp.MustCompile(`\r([^\x1b\r])`)

	// Any ANSI escape sequence, for visual-emptiness checks.
	anySequenceRe = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
)

// Rewrite reconciles one line of remote output with the fact that it will be
// printed behind prompt. Total and side-effect-free.
//
// Erase-in-line sequences are followed by cursor save, a jump to column 0,
// the prompt, and cursor restore, so a partially erased line keeps its host
// prefix. A bare carriage return gets the prompt re-inserted after it.
// Cursor-repositioning and visibility sequences are stripped unless
// allowCursorControl is set; color and style sequences always pass through.
func Rewrite(line, prompt string, allowCursorControl bool) string {
	if !allowCursorControl {
		line = cursorControlRe.ReplaceAllString(line, "")
	}

	line = eraseLineRe.ReplaceAllString(line, "$0\x1b[s\x1b[G"+prompt+"\x1b[u")
	line = bareCarriageRe.ReplaceAllString(line, "\r"+prompt+"$1")

	return strings.TrimRight(line, " \t\r\n\v\f")
}

// VisuallyEmpty reports whether a rewritten line renders as a blank line:
// nothing left once escape sequences and whitespace are removed.
func VisuallyEmpty(line string) bool {
	return strings.TrimSpace(anySequenceRe.ReplaceAllString(line, "")) == ""
}
