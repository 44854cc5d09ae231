package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - long-distance nodes
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// status writes icon-prefixed progress lines for a command. Commands build
// it from cmd.OutOrStdout so tests can capture the output.
type status struct{ w io.Writer }

func newStatus(w io.Writer) status { return status{w: w} }

func (s status) line(icon string, style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(s.w, style.Render(icon)+" "+fmt.Sprintf(format, args...))
}

func (s status) success(format string, args ...any) {
	s.line(iconSuccess, styleIconSuccess, format, args...)
}

func (s status) info(format string, args ...any) {
	s.line(iconInfo, styleIconInfo, format, args...)
}

// detail prints an indented, dimmed line under the previous status.
func (s status) detail(format string, args ...any) {
	fmt.Fprintln(s.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (s status) file(path string) {
	fmt.Fprintln(s.w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

var styleKey = lipgloss.NewStyle().Foreground(colorGray).Width(12)

func (s status) keyValue(key, value string) {
	fmt.Fprintln(s.w, "  "+styleKey.Render(key)+" "+StyleValue.Render(value))
}
