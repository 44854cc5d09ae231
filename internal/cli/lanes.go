package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracelane/pkg/timeline"
)

// lanesCommand creates the lanes command.
func (c *CLI) lanesCommand() *cobra.Command {
	var (
		bf    backendFlags
		width float64
	)

	cmd := &cobra.Command{
		Use:   "lanes",
		Short: "Print the lane table of a graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 {
				width = c.config().Viewer.LaneWidth
			}
			return c.runLanes(cmd.Context(), bf, width, cmd.OutOrStdout())
		},
	}

	bf.register(cmd)
	cmd.Flags().Float64Var(&width, "lane-width", 0, "lane width in pixels (default from config)")

	return cmd
}

func (c *CLI) runLanes(ctx context.Context, bf backendFlags, width float64, w io.Writer) error {
	be, err := c.openBackend(ctx, bf)
	if err != nil {
		return err
	}
	n, err := be.Timeslots(ctx)
	if err != nil {
		return err
	}
	m := timeline.NewModel(n, width)
	fmt.Fprintln(w, lanesTable(m))
	fmt.Fprintf(w, "%s %s\n", StyleDim.Render("total width"), StyleNumber.Render(strconv.FormatFloat(m.TotalWidth(), 'f', 0, 64)))
	return nil
}

func lanesTable(m *timeline.Model) string {
	rows := make([][]string, 0, m.Len())
	for _, l := range m.Lanes() {
		rows = append(rows, []string{
			strconv.Itoa(l.ID),
			l.Label,
			strconv.Itoa(l.Timestamp(m.Count())),
			strconv.FormatFloat(l.XOffset, 'f', 0, 64),
			strconv.FormatFloat(l.Width, 'f', 0, 64),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Lane", "Label", "Timestamp", "X", "Width").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 {
				return cellStyle.Foreground(colorCyan)
			}
			return cellStyle
		})
	return t.Render()
}
