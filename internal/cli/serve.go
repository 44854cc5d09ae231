package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tracelane/pkg/backend"
	"github.com/matzehuels/tracelane/pkg/cache"
	"github.com/matzehuels/tracelane/pkg/observability"
)

// serveOptions holds flag overrides for the serve command.
type serveOptions struct {
	listen  string
	cache   string
	noWatch bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve a PDG export over HTTP",
		Long: `Serve loads a dynamic PDG export and answers lane-range queries over HTTP.

The graph file is watched and reloaded when it changes. Responses are not
cached by default; use --cache file or --cache redis to keep serialized
windows between requests. Prometheus metrics are exposed at /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if len(args) == 1 {
				cfg.Server.Graph = args[0]
			}
			if opts.listen != "" {
				cfg.Server.Listen = opts.listen
			}
			if opts.cache != "" {
				cfg.Server.Cache = opts.cache
			}
			if opts.noWatch {
				cfg.Server.Watch = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Server.Graph == "" {
				return errNoGraph
			}
			return c.runServe(cmd.Context(), cfg.Server, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address (default from config, :7420)")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "response cache: none, file or redis")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the graph when the file changes")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, sc ServerConfig, w io.Writer) error {
	logger := loggerFromContext(ctx)

	local, err := c.openLocal(ctx, sc.Graph)
	if err != nil {
		return err
	}

	store, err := openCache(ctx, sc)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observability.Register(observability.NewPrometheus(reg))
	defer observability.Reset()

	abs, _ := filepath.Abs(sc.Graph)
	api := backend.NewServer(local, backend.ServerOptions{
		Cache:  store,
		Keyer:  cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":"+cache.Hash([]byte(abs))[:12]+":"),
		TTL:    sc.CacheTTL,
		Logger: logger,
	})

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(logger),
		middleware.Recoverer,
	)
	api.Routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    sc.Listen,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if sc.Watch {
		eg.Go(func() error {
			return backend.Watch(egctx, local, sc.Graph, sc.ReloadDelay)
		})
	}

	eg.Go(func() error {
		out := newStatus(w)
		out.success("Serving %s", StyleValue.Render(filepath.Base(sc.Graph)))
		out.keyValue("listen", sc.Listen)
		out.keyValue("cache", sc.Cache)
		out.keyValue("watch", fmt.Sprint(sc.Watch))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// openCache builds the response cache selected by sc.Cache.
func openCache(ctx context.Context, sc ServerConfig) (cache.Cache, error) {
	switch sc.Cache {
	case cacheFile:
		dir := sc.CacheDir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				return nil, fmt.Errorf("get cache dir: %w", err)
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case cacheRedis:
		rc, err := cache.NewRedisCache(ctx, sc.RedisURL)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return cache.NewNullCache(), nil
	}
}

// requestLogger logs every request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"took", time.Since(start).Round(time.Microsecond),
				"id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
