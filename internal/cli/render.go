package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracelane/pkg/backend"
	"github.com/matzehuels/tracelane/pkg/render/nodelink"
	"github.com/matzehuels/tracelane/pkg/viewer"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"

	defaultSeed      = 42   // physics seed for reproducible layouts
	defaultMaxFrames = 2000 // frame budget of a headless session
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	backendFlags
	output    string  // output file path; stdout when empty
	format    string  // dot or svg; derived from the output extension when empty
	engine    string  // Graphviz engine for SVG: neato (pinned) or dot
	offset    float64 // scroll offset in pixels
	width     float64 // viewport width in pixels
	height    float64 // container height in pixels
	detailed  bool    // add source location and code to labels
	noPin     bool    // let Graphviz place nodes itself
	seed      uint64  // physics seed
	maxFrames int     // frame budget before giving up on settling
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		engine:    string(nodelink.EngineNeato),
		seed:      defaultSeed,
		maxFrames: defaultMaxFrames,
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Lay out a lane window headlessly and write DOT or SVG",
		Long: `Render runs a viewer session without a terminal: it loads the lanes around
--offset, lets the layout settle and writes the window as a Graphviz diagram
with one cluster per lane and the computed positions pinned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.format, opts.output)
			if err != nil {
				return err
			}
			opts.format = format
			if _, err := nodelink.ParseEngine(opts.engine); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	opts.backendFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot or svg (default from --output extension, else dot)")
	cmd.Flags().StringVar(&opts.engine, "engine", opts.engine, "Graphviz engine for svg: neato (pinned positions) or dot")
	cmd.Flags().Float64Var(&opts.offset, "offset", 0, "scroll offset in pixels")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "viewport width in pixels (default from config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "container height in pixels (default from config)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include source location and code in labels")
	cmd.Flags().BoolVar(&opts.noPin, "no-pin", false, "do not pin node positions")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "physics seed")
	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", opts.maxFrames, "frame budget for settling")

	return cmd
}

// resolveFormat picks the output format from the flag or the file extension.
func resolveFormat(format, output string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".svg":
			return formatSVG, nil
		default:
			return formatDOT, nil
		}
	}
	switch f := strings.ToLower(format); f {
	case formatDOT, formatSVG:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want dot or svg)", format)
}

func (c *CLI) runRender(ctx context.Context, opts renderOpts, w io.Writer) error {
	logger := loggerFromContext(ctx)
	be, err := c.openBackend(ctx, opts.backendFlags)
	if err != nil {
		return err
	}

	cfg := c.config().Viewer
	if opts.width > 0 {
		cfg.Viewport = opts.width
	}
	if opts.height > 0 {
		cfg.Height = opts.height
	}

	prog := newProgress(logger)
	s, err := settle(ctx, be, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	prog.done(fmt.Sprintf("Laid out %d nodes", s.Len()))

	dot := nodelink.ToDOT(nodelink.FromSession(s), nodelink.Options{Detailed: opts.detailed, NoPin: opts.noPin})
	data := []byte(dot)
	if opts.format == formatSVG {
		engine, _ := nodelink.ParseEngine(opts.engine)
		if data, err = nodelink.RenderSVG(ctx, dot, engine); err != nil {
			return err
		}
	}

	if opts.output == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	out := newStatus(w)
	out.success("Rendered %s", opts.format)
	out.file(opts.output)
	return nil
}

// settle opens a session on a manual loop, scrolls to the requested offset
// and runs frames until the layout is frozen or the frame budget is spent.
func settle(ctx context.Context, be backend.Backend, cfg viewer.Config, opts renderOpts, logger *log.Logger) (*viewer.Session, error) {
	loop := viewer.NewManualLoop()
	s := viewer.New(be, loop, cfg, viewer.WithSeed(opts.seed), viewer.WithLogger(logger))
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	loop.Settle()
	if opts.offset != 0 {
		s.ScrollTo(opts.offset)
		loop.Advance(cfg.Debounce)
		loop.Settle()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frames := 0
	for ; frames < opts.maxFrames && !s.Stable(); frames++ {
		s.Frame()
		loop.Advance(frameInterval)
		loop.Settle()
	}
	logger.Debug("layout settled", "frames", frames, "stable", s.Stable())
	return s, nil
}
