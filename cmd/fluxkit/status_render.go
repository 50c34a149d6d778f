package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

var statusStyles = [...]struct {
	tag    string
	colors text.Colors
}{
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed, text.Bold}},
}

// labelWidth aligns the values of consecutive field lines.
const labelWidth = 20

// renderField prints "  Label:    value" with the value column aligned.
func renderField(label, value string) string {
	return fmt.Sprintf("  %-*s %s", labelWidth, label+":", value)
}

// renderStatusLine is renderField with a [TAG] before the message, coloured
// by kind when colorize is set.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	value := "[" + style.tag + "]"
	if message != "" {
		value += " " + message
	}
	line := renderField(label, value)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	title = "== " + strings.TrimSpace(title) + " =="
	lines := []string{title, strings.Repeat("-", text.StringWidthWithoutEscSequences(title))}
	if colorize {
		for i := range lines {
			lines[i] = text.FgCyan.Sprint(lines[i])
		}
	}
	return lines
}

// shouldColorize reports whether w is a terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
