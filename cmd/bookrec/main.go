package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"bookrec/internal/caption"
	"bookrec/internal/export"
	"bookrec/internal/httpapi"
	"bookrec/internal/tui"
)

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bookrec",
		Usage: "Semantic book recommendations by description, category and emotional tone",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (optional; uses ~/.config/bookrec/config.yaml if not provided)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Embed the description corpus into the vector index",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Drop the collection before indexing",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Print recommendations for a description",
				ArgsUsage: "<description>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Only books in this category", Value: "All"},
					&cli.StringFlag{Name: "tone", Usage: "Sort by tone (Happy, Surprising, Angry, Suspenseful, Sad, Disturbing)", Value: "All"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of recommendations (default from config)"},
					&cli.StringFlag{Name: "csv", Usage: "Also write the results to this CSV file"},
				},
			},
			{
				Name:   "tui",
				Usage:  "Interactive recommendation form",
				Action: tuiCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "export", Usage: "CSV path for ctrl+e", Value: export.DefaultFilename},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the recommendation gallery over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config)"},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	comp, err := build(c.Context, cfg, false)
	if err != nil {
		return err
	}
	defer comp.Close()

	if cfg.VectorStore.Type == "memory" {
		slog.Warn("memory vector store does not persist; the index is discarded on exit")
	}
	report, err := comp.indexer.Run(c.Context, cfg.Corpus.Path, c.Bool("reset"))
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "indexed %d of %d documents (%d malformed, %d duplicates)\n",
		report.Indexed, report.Documents, report.Malformed, report.Duplicates)
	return nil
}

func queryCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("usage: bookrec query [--category C] [--tone T] [-n N] <description>")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	comp, err := build(c.Context, cfg, true)
	if err != nil {
		return err
	}
	defer comp.Close()

	q := comp.defaults
	q.Text = text
	q.Category = c.String("category")
	q.Tone = c.String("tone")
	if n := c.Int("limit"); n > 0 {
		q.ResultLimit = n
	}
	res, err := comp.engine.Retrieve(c.Context, q)
	if err != nil {
		return err
	}
	if res.Notice != "" {
		fmt.Fprintln(c.App.ErrWriter, res.Notice)
	}
	for i, b := range res.Books {
		fmt.Fprintf(c.App.Writer, "%d. %s\n   %s\n", i+1, caption.Caption(b), b.LargeThumbnail)
	}
	if path := c.String("csv"); path != "" {
		if err := export.WriteFile(path, res.Books); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	return nil
}

func tuiCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	comp, err := build(c.Context, cfg, true)
	if err != nil {
		return err
	}
	defer comp.Close()

	m := tui.New(comp.engine, comp.catalog.Categories(), comp.defaults).WithExportPath(c.String("export"))
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	comp, err := build(c.Context, cfg, true)
	if err != nil {
		return err
	}
	defer comp.Close()

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if !slog.Default().Enabled(c.Context, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	h := httpapi.NewHandler(comp.engine, comp.catalog.Categories(), comp.defaults, slog.Default())
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving gallery", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
