package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	successColorConstant = "#04B575"
	noticeColorConstant  = "#FFA500"
	lineTemplateConstant = "%s\n"
)

// StatusPrinter writes the user-facing status lines of an audit run.
// Styling is applied only when the destination is a terminal.
type StatusPrinter struct {
	writer       io.Writer
	styled       bool
	successStyle lipgloss.Style
	noticeStyle  lipgloss.Style
}

// NewStatusPrinter constructs a printer for the writer, detecting terminal support.
func NewStatusPrinter(writer io.Writer) *StatusPrinter {
	if writer == nil {
		writer = io.Discard
	}
	return &StatusPrinter{
		writer:       writer,
		styled:       isTerminal(writer),
		successStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(successColorConstant)),
		noticeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color(noticeColorConstant)),
	}
}

// Success prints a completion line.
func (printer *StatusPrinter) Success(message string) {
	printer.print(printer.successStyle, message)
}

// Notice prints an informational line such as an early exit.
func (printer *StatusPrinter) Notice(message string) {
	printer.print(printer.noticeStyle, message)
}

func (printer *StatusPrinter) print(style lipgloss.Style, message string) {
	if printer == nil {
		return
	}
	rendered := message
	if printer.styled {
		rendered = style.Render(message)
	}
	fmt.Fprintf(printer.writer, lineTemplateConstant, rendered)
}

type unwrappingWriter interface {
	Unwrap() io.Writer
}

func isTerminal(writer io.Writer) bool {
	for {
		wrapper, wraps := writer.(unwrappingWriter)
		if !wraps {
			break
		}
		writer = wrapper.Unwrap()
	}
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	descriptor := file.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}
