// Package main implements the popreader binary.
// It ingests the census export into the binary store and answers lookup,
// ranking and summary queries over it, either as one-shot subcommands or
// through an interactive menu.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/popreader/popreader/internal/app"
	"github.com/popreader/popreader/internal/config"
	"github.com/popreader/popreader/internal/logging"
	"github.com/popreader/popreader/internal/ranking"
	"github.com/popreader/popreader/internal/report"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errUsage is returned for bad command lines; usage has already been printed.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("popreader: %v", err)
	}
}

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configFile  string
	dataDir     string
	input       string
	store       string
	logLevel    string
	showVersion bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("popreader", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts globalOptions
	fs.StringVar(&opts.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&opts.dataDir, "data-dir", "", "Base directory for all data files")
	fs.StringVar(&opts.input, "input", "", "Path to the delimited census file")
	fs.StringVar(&opts.store, "store", "", "Path to the binary store file")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "popreader version %s (commit: %s)\n", version, commit)
		return nil
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewWithOptions(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	d, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	c := &cli{ds: d, cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}

	switch cmd {
	case "ingest":
		return c.ingest(ctx)
	case "lookup":
		return c.lookup(ctx, cmdArgs)
	case "rank":
		return c.rank(ctx, cmdArgs)
	case "summarize":
		return c.summarize(ctx)
	case "dump":
		return c.dump(ctx)
	case "publish":
		return c.publish(ctx)
	case "fetch":
		return c.fetch(ctx, cmdArgs)
	case "history":
		return c.history(ctx, cmdArgs)
	case "menu":
		return c.menu(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return errUsage
	}
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "popreader - census population reader\n\n")
	fmt.Fprintf(w, "Usage: popreader [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  ingest              Read the census file into the binary store\n")
	fmt.Fprintf(w, "  lookup <id>         Show one municipality\n")
	fmt.Fprintf(w, "  rank [-limit n]     Rank municipalities by population, largest first\n")
	fmt.Fprintf(w, "  summarize           Write population totals by province and department\n")
	fmt.Fprintf(w, "  dump                Print every record of the binary store\n")
	fmt.Fprintf(w, "  publish             Upload the store and summary to object storage\n")
	fmt.Fprintf(w, "  fetch <object>      Download a published store\n")
	fmt.Fprintf(w, "  history [-limit n]  List catalog snapshots\n")
	fmt.Fprintf(w, "  menu                Interactive session\n")
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nEnvironment Variables:\n")
	fmt.Fprintf(w, "  POPREADER_DATA_DIR       Base directory for data files\n")
	fmt.Fprintf(w, "  POPREADER_INPUT_PATH     Census file\n")
	fmt.Fprintf(w, "  POPREADER_STORE_PATH     Binary store file\n")
	fmt.Fprintf(w, "  POPREADER_STORAGE_TYPE   Storage type (none, local, s3)\n")
	fmt.Fprintf(w, "  POPREADER_LOG_LEVEL      Log level\n")
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(opts globalOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if opts.configFile != "" {
		cfg, err = config.LoadFromFile(opts.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.input != "" {
		cfg.Input.Path = opts.input
	}
	if opts.store != "" {
		cfg.Store.Path = opts.store
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	return cfg, nil
}

// cli binds subcommands to one dataset and its console streams.
type cli struct {
	ds     *app.Dataset
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) ingest(ctx context.Context) error {
	n, err := c.ds.Ingest(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "ingested %d records into %s\n", n, c.cfg.Store.Path)
	return nil
}

func (c *cli) lookup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("lookup: expected one identifier, got %d arguments", len(args))
	}
	id, err := parseID(args[0])
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if _, err := c.ds.Load(ctx); err != nil {
		return err
	}
	return c.show(id)
}

func (c *cli) show(id int32) error {
	m, ok := c.ds.LookupByIdentifier(id)
	if !ok {
		fmt.Fprintln(c.stdout, report.NotFoundMessage)
		return nil
	}
	return report.WriteRecord(c.stdout, m)
}

func (c *cli) rank(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	limit := fs.Int("limit", 0, "Print only the first n records (0 prints all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := c.ds.Load(ctx); err != nil {
		return err
	}
	ranked, err := c.ds.ListByPopulationDescending(ctx)
	if err != nil {
		return err
	}
	return report.WriteRecords(c.stdout, ranking.Top(ranked, *limit))
}

func (c *cli) summarize(ctx context.Context) error {
	if _, err := c.ds.Load(ctx); err != nil {
		return err
	}
	text, err := c.ds.Summarize()
	if err != nil {
		return err
	}
	fmt.Fprint(c.stdout, text)
	return nil
}

func (c *cli) dump(ctx context.Context) error {
	if _, err := c.ds.Load(ctx); err != nil {
		return err
	}
	return c.dumpLoaded()
}

func (c *cli) publish(ctx context.Context) error {
	if _, err := c.ds.Load(ctx); err != nil {
		return err
	}
	uploaded, err := c.ds.Publish(ctx)
	if err != nil {
		return err
	}
	objects := make([]string, len(uploaded))
	for i, u := range uploaded {
		objects[i] = u.ObjectPath
	}
	return report.WriteObjects(c.stdout, objects)
}

func (c *cli) fetch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("fetch: expected one object path, got %d arguments", len(args))
	}
	n, err := c.ds.Fetch(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "fetched %d records into %s\n", n, c.cfg.Store.Path)
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	limit := fs.Int("limit", 20, "Maximum number of snapshots (0 lists all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snapshots, err := c.ds.History(ctx, *limit)
	if err != nil {
		return err
	}
	return report.WriteSnapshots(c.stdout, snapshots)
}

func parseID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q", s)
	}
	return int32(v), nil
}
