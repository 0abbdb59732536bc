// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/schema"
)

const colorFlagUsage = "colorize output: auto, always or never"

// useColor resolves a --color value against the output stream. "auto"
// colors only terminals.
func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "", "auto":
		file, ok := w.(*os.File)
		return ok && term.IsTerminal(int(file.Fd())), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	}
	return false, cli.Validation("unknown --color mode %q (want auto, always or never)", mode)
}

// highlightJSON returns text with ANSI syntax highlighting, or text
// unchanged if highlighting fails.
func highlightJSON(text string) string {
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, text, "json", "terminal256", "monokai"); err != nil {
		return text
	}
	return buffer.String()
}

// severityStyles renders compatibility findings. The color profile is
// forced: "always" must color pipes too, which lipgloss would otherwise
// detect as colorless.
type severityStyles struct {
	breaking lipgloss.Style
	warning  lipgloss.Style
}

func newSeverityStyles(w io.Writer) severityStyles {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)
	return severityStyles{
		breaking: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		warning:  renderer.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (s severityStyles) render(finding schema.Finding) string {
	text := finding.String()
	severity := finding.Severity.String()
	style := s.warning
	if finding.Severity == schema.Breaking {
		style = s.breaking
	}
	return style.Render(severity) + strings.TrimPrefix(text, severity)
}
