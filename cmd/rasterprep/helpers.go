package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// configureColor disables ANSI color when the destination is not an
// interactive terminal, so piped and redirected output stays plain.
func configureColor(out io.Writer) {
	file, ok := out.(*os.File)
	if !ok {
		color.NoColor = true
		return
	}
	fd := file.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		color.NoColor = true
	}
}

func successf(out io.Writer, format string, args ...any) {
	fmt.Fprint(out, color.GreenString(format, args...))
}

func warnf(out io.Writer, format string, args ...any) {
	fmt.Fprint(out, color.YellowString(format, args...))
}
