package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// IsTTY reports whether fd refers to a terminal, gating color/table
// output.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// Stdout reports whether os.Stdout is a terminal.
func Stdout() bool {
	return IsTTY(os.Stdout.Fd())
}

// PrintWarning writes a dim-yellow warning line to stderr, falling back to
// plain text when stderr is not a terminal.
func PrintWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if IsTTY(os.Stderr.Fd()) {
		fmt.Fprintln(os.Stderr, Warning.Render("warning: "+msg))
		return
	}
	fmt.Fprintln(os.Stderr, "warning: "+msg)
}
