package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/semindex/internal"
	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/mcpserver"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/vaultservice"
	pkgconfig "github.com/starford/semindex/pkg/config"
)

type runner struct {
	stdout io.Writer
	stderr io.Writer
}

type serviceAction func(ctx context.Context, cmd *cli.Command, svc *vaultservice.Service) error

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"}
}

func (r *runner) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "scan",
			Usage: "Classify every note as UNCHANGED, NEEDS_INDEX or ORPHANED",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "preview", Value: 5, Usage: "Lines of content shown under each NEEDS_INDEX note (0 disables)"},
				jsonFlag(),
			},
			Action: r.withService(r.scan),
		},
		{
			Name:      "file",
			Usage:     "Print a note's content, live hash and summariser hints",
			ArgsUsage: "<path>",
			Flags:     []cli.Flag{jsonFlag()},
			Action:    r.withService(r.file),
		},
		{
			Name:      "update",
			Usage:     "Record the summary and keywords for a note",
			ArgsUsage: "<path> <summary> <keywords-csv> [related-csv]",
			Action:    r.withService(r.update),
		},
		{
			Name:      "search",
			Usage:     "Rank entries against a query",
			ArgsUsage: "<query>",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Usage: "Maximum results (default from index.search_limit)"}},
			Action:    r.withService(r.search(false)),
		},
		{
			Name:      "search-json",
			Usage:     "Rank entries against a query and print the candidates as JSON",
			ArgsUsage: "<query>",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Usage: "Maximum candidates (default from index.search_limit)"}},
			Action:    r.withService(r.search(true)),
		},
		{
			Name:      "miss",
			Usage:     "Log a search that failed to surface the expected note",
			ArgsUsage: "<query> <expected-path> [reason]",
			Action:    r.withService(r.miss),
		},
		{
			Name:   "misses",
			Usage:  "Print the miss log",
			Flags:  []cli.Flag{jsonFlag()},
			Action: r.withService(r.misses),
		},
		{
			Name:   "stats",
			Usage:  "Print index diagnostics",
			Flags:  []cli.Flag{jsonFlag()},
			Action: r.withService(r.stats),
		},
		{
			Name:   "prune",
			Usage:  "Remove entries whose notes no longer exist",
			Flags:  []cli.Flag{&cli.BoolFlag{Name: "dry-run", Usage: "Only list what would be removed"}},
			Action: r.withService(r.prune),
		},
		{
			Name:   "watch",
			Usage:  "Watch the vault and print notes as they start needing indexing",
			Action: r.withService(r.watch),
		},
		{
			Name:   "serve",
			Usage:  "Run the HTTP API and the vault watcher",
			Action: r.serve,
		},
		{
			Name:   "mcp",
			Usage:  "Serve the index tools over MCP on stdin/stdout",
			Action: r.withService(r.mcp),
		},
	}
}

// loadConfig reads the config file, applies flag overrides and builds the
// logger. An explicitly named config file must exist.
func (r *runner) loadConfig(cmd *cli.Command) (*internal.Config, *slog.Logger, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if b := cmd.String("backend"); b != "" {
		cfg.Index.Backend = b
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, internal.NewLogger(cfg.App, r.stderr), nil
}

func (r *runner) withService(fn serviceAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, logger, err := r.loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, err := internal.Open(internal.WithConfig(cfg), internal.WithLogger(logger))
		if err != nil {
			return err
		}
		defer svc.Close()
		return fn(ctx, cmd, svc)
	}
}

func (r *runner) scan(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	results, err := svc.Scan()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return vaultservice.WriteJSON(r.stdout, results)
	}
	n := int(cmd.Int("preview"))
	return vaultservice.WriteScan(r.stdout, results, func(path string) []string {
		return svc.Preview(path, n)
	})
}

func (r *runner) file(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	if cmd.Args().Len() != 1 {
		return errors.New("usage: file <path>")
	}
	view, err := svc.File(cmd.Args().First())
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return vaultservice.WriteJSON(r.stdout, view)
	}
	return vaultservice.WriteFile(r.stdout, view)
}

func (r *runner) update(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	args := cmd.Args()
	if args.Len() < 3 || args.Len() > 4 {
		return errors.New("usage: update <path> <summary> <keywords-csv> [related-csv]")
	}
	entry, err := svc.Update(index.UpdateRequest{
		Path:     args.Get(0),
		Summary:  args.Get(1),
		Keywords: index.SplitList(args.Get(2)),
		Related:  index.SplitList(args.Get(3)),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "Updated %s\n", entry.SourcePath)
	return vaultservice.WriteEntry(r.stdout, entry)
}

func (r *runner) search(asJSON bool) serviceAction {
	return func(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
		if cmd.Args().Len() == 0 {
			return errors.New("usage: search <query>")
		}
		query := strings.Join(cmd.Args().Slice(), " ")
		report, err := svc.Search(query, int(cmd.Int("limit")))
		if err != nil {
			return err
		}
		if asJSON {
			return vaultservice.WriteJSON(r.stdout, report)
		}
		return vaultservice.WriteSearch(r.stdout, report)
	}
}

func (r *runner) miss(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	args := cmd.Args()
	if args.Len() < 2 || args.Len() > 3 {
		return errors.New("usage: miss <query> <expected-path> [reason]")
	}
	rec, err := svc.Miss(args.Get(0), args.Get(1), args.Get(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.stdout, "Logged miss: %q -> %s\n", rec.Query, rec.ExpectedPath)
	return err
}

func (r *runner) misses(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	recs, err := svc.Misses()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return vaultservice.WriteJSON(r.stdout, recs)
	}
	return vaultservice.WriteMisses(r.stdout, recs)
}

func (r *runner) stats(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	st, err := svc.Stats()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return vaultservice.WriteJSON(r.stdout, st)
	}
	return vaultservice.WriteStats(r.stdout, st)
}

func (r *runner) prune(_ context.Context, cmd *cli.Command, svc *vaultservice.Service) error {
	dryRun := cmd.Bool("dry-run")
	removed, err := svc.Prune(dryRun)
	if err != nil {
		return err
	}
	return vaultservice.WritePrune(r.stdout, removed, dryRun)
}

func (r *runner) watch(ctx context.Context, _ *cli.Command, svc *vaultservice.Service) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err := svc.Watch(ctx, func(pending []models.ScanResult) {
		for _, p := range pending {
			fmt.Fprintf(r.stdout, "%-12s %s\n", p.Status, p.Path)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *runner) serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, internal.WithConfig(cfg), internal.WithLogger(logger)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func (r *runner) mcp(_ context.Context, _ *cli.Command, svc *vaultservice.Service) error {
	return mcpserver.New(svc, version).ServeStdio()
}
