// Package scripteditor opens JXA source in macOS Script Editor.
package scripteditor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/process"
)

// ErrNoSource is returned when there is nothing to send.
var ErrNoSource = errors.New("no JXA code to send")

// Runner runs a subprocess to completion.
type Runner interface {
	Run(ctx context.Context, c process.Command) (process.Result, error)
}

var templateBreakers = regexp.MustCompile("(`|\\$\\{)")

// Script returns the JXA program that creates a Script Editor document
// holding source and checks its syntax. source is embedded in a raw template
// literal, so backticks and "${" are escaped on the way in and unescaped
// once the text is inside Script Editor.
func Script(source string) string {
	escaped := templateBreakers.ReplaceAllString(source, `\${1}`)
	return strings.Join([]string{
		`const edi = Application("Script Editor")`,
		`const doc = edi.make({ new: "document" })`,
		"doc.contents = String.raw`" + escaped + "`.replace(/\\\\(`|\\$\\{)/g, \"$1\")",
		`edi.activate()`,
		`doc.checkSyntax()`,
	}, "\n")
}

// Send runs the Script Editor program for source. jxarun is the bundled
// runner; when it is not executable osascript is used directly.
func Send(ctx context.Context, runner Runner, jxarun, osascript, source string) error {
	if source == "" {
		return ErrNoSource
	}
	cmd := process.Command{
		Path:  osascript,
		Args:  []string{"-l", "JavaScript", "-"},
		Stdin: []byte(Script(source)),
	}
	if jxarun != "" && process.IsExecutable(jxarun) {
		cmd.Path = jxarun
		cmd.Args = []string{"-"}
	}
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("sending to Script Editor failed: %s", strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// Selection returns the part of text covered by rng. Positions past the end
// of a line or of the text are clamped.
func Selection(text string, rng lsp.Range) string {
	start := offset(text, rng.Start)
	end := offset(text, rng.End)
	if end < start {
		start, end = end, start
	}
	return text[start:end]
}

// offset converts a position with a UTF-16 character index into a byte
// offset into text.
func offset(text string, pos lsp.Position) int {
	i := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := strings.IndexByte(text[i:], '\n')
		if next < 0 {
			return len(text)
		}
		i += next + 1
	}
	units := uint32(0)
	for i < len(text) && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			break
		}
		units += uint32(utf16.RuneLen(r))
		i += size
	}
	return i
}
