package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracelane/pkg/backend"
	"github.com/matzehuels/tracelane/pkg/buildinfo"
	"github.com/matzehuels/tracelane/pkg/translate"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "tracelane"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Tracelane explores dynamic program dependence graphs lane by lane",
		Long: `Tracelane shows a dynamic program dependence graph of a hardware simulation
as a horizontally scrolling timeline. Each simulation timestamp is a lane;
only the lanes near the viewport are fetched from the backend.`,
		Version:      buildinfo.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./tracelane.toml, then $XDG_CONFIG_HOME/tracelane/config.toml)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.lanesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// config returns the loaded configuration, or defaults when a command runs
// without the root pre-run (tests).
func (c *CLI) config() *Config {
	if c.cfg == nil {
		c.cfg = DefaultConfig()
	}
	return c.cfg
}

// =============================================================================
// Backend Selection
// =============================================================================

// backendFlags selects where view, render and lanes get their graph from.
type backendFlags struct {
	graph  string
	server string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.graph, "graph", "g", "", "PDG export to load in-process (default from [server] graph)")
	cmd.Flags().StringVarP(&f.server, "server", "s", "", "URL of a running tracelane server")
	cmd.MarkFlagsMutuallyExclusive("graph", "server")
}

// openBackend returns a remote client when --server is set, otherwise an in-process
// backend over the graph file.
func (c *CLI) openBackend(ctx context.Context, f backendFlags) (backend.Backend, error) {
	if f.server != "" {
		loggerFromContext(ctx).Debug("using remote backend", "url", f.server)
		return backend.NewClient(f.server), nil
	}
	sc := c.config().Server
	path := f.graph
	if path == "" {
		path = sc.Graph
	}
	if path == "" {
		return nil, errNoGraph
	}
	return c.openLocal(ctx, path)
}

func (c *CLI) openLocal(ctx context.Context, path string) (*backend.Local, error) {
	sc := c.config().Server
	root := sc.SourceRoot
	if root == "" {
		root = filepath.Dir(path)
	}
	prog := newProgress(loggerFromContext(ctx))
	l, err := backend.OpenLocal(path, backend.LocalOptions{
		SourceRoot:    root,
		EditorCommand: sc.Editor,
		Strategy:      translate.ParseStrategy(sc.Values),
		LongDistance:  sc.LongDistance,
		Logger:        loggerFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	prog.done("Loaded " + filepath.Base(path))
	return l, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/tracelane/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the user config directory (~/.config/tracelane/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
