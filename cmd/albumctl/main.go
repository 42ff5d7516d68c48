package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"album-viewer/internal/albumtree"
	"album-viewer/internal/database"
	"album-viewer/internal/entries"
	"album-viewer/internal/events"
	"album-viewer/internal/library"
	"album-viewer/internal/memory"
	"album-viewer/internal/scanner"
	"album-viewer/internal/startup"
	"album-viewer/internal/thumbcache"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	startup.LoadDotEnv()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds the writers, output mode and services of one invocation.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	asJSON  bool
	lib     *library.Service
	scanner *scanner.Scanner
	cache   *thumbcache.Cache
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	command := args[0]
	handler, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return exitUsage
	}

	c := &cli{stdout: stdout, stderr: stderr, asJSON: !isTerminal(stdout)}
	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.BoolVar(&c.asJSON, "json", c.asJSON, "print JSON instead of a table")
	exec := handler(c, flags)

	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	closeFn, err := c.open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer closeFn()

	if err := exec(ctx, flags.Args()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// commandFunc registers its flags and returns the function that runs the
// command with the remaining positional arguments.
type commandFunc func(c *cli, flags *pflag.FlagSet) func(ctx context.Context, args []string) error

var commands = map[string]commandFunc{
	"scan":    scanCommand,
	"tree":    treeCommand,
	"cleanup": cleanupCommand,
	"refresh": refreshCommand,
}

// open reads the configuration and builds the library on the configured
// database.
func (c *cli) open(ctx context.Context) (func(), error) {
	config, err := startup.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", config.DatabasePath, err)
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: failed to close database: %v\n", err)
		}
	}

	overrides, err := db.GetSettings(ctx)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("read stored settings: %w", err)
	}
	if _, err := config.ApplyOverrides(overrides); err != nil {
		closeFn()
		return nil, fmt.Errorf("stored settings: %w", err)
	}

	lister, err := entries.NewLister(config.ZipListingCache)
	if err != nil {
		closeFn()
		return nil, err
	}
	c.cache = thumbcache.New(db, lister, thumbcache.Options{Dir: config.CacheDir})
	c.scanner = scanner.New(db, lister, progressPrinter{w: c.stderr})
	c.lib = library.New(db, lister, c.scanner, c.cache, library.Options{
		CoversDir: config.CoversDir(),
		Settings:  config.Settings,
	})
	return closeFn, nil
}

func scanCommand(c *cli, flags *pflag.FlagSet) func(context.Context, []string) error {
	recursive := flags.BoolP("recursive", "r", false, "register every folder and zip below each path")
	update := flags.Bool("update", true, "refresh counts of albums that are already registered")
	return func(ctx context.Context, paths []string) error {
		if len(paths) == 0 {
			return usageError{"scan needs at least one PATH"}
		}
		res, err := c.scanner.Scan(ctx, paths, scanner.Options{Recursive: *recursive, Update: *update})
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.writeJSON(res)
		}
		tw := c.table("ID", "TYPE", "FILES", "PATH")
		for _, a := range res.Items {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", a.ID, a.Kind, a.FileCount, a.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%d album(s) registered\n", res.Count)
		return nil
	}
}

func treeCommand(c *cli, flags *pflag.FlagSet) func(context.Context, []string) error {
	keyword := flags.StringP("keyword", "k", "", "keep only branches whose name or path contains this text")
	parent := flags.String("parent", "", "print only the subtree of this album path")
	return func(ctx context.Context, _ []string) error {
		res, err := c.lib.List(ctx, library.ListOptions{
			Scope:      library.ScopeTree,
			Keyword:    *keyword,
			ParentPath: *parent,
		})
		if err != nil {
			return err
		}
		tree := res.(library.TreeResult)
		if c.asJSON {
			return c.writeJSON(tree)
		}
		if len(tree.Items) == 0 {
			fmt.Fprintln(c.stdout, "No albums.")
			return nil
		}
		printTree(c.stdout, tree.Items, 0)
		return nil
	}
}

func printTree(w io.Writer, nodes []*albumtree.Node, depth int) {
	for _, n := range nodes {
		label := n.Path
		if depth > 0 {
			label = n.Album.Name
		}
		fmt.Fprintf(w, "%s%s [%s, %d files, id %d]\n", strings.Repeat("  ", depth), label, n.Album.Kind, n.Album.FileCount, n.Album.ID)
		printTree(w, n.Children, depth+1)
	}
}

func cleanupCommand(c *cli, flags *pflag.FlagSet) func(context.Context, []string) error {
	maxBytes := flags.Int64("max-bytes", -1, "cache budget in bytes (default: the cacheMaxBytes setting)")
	return func(ctx context.Context, _ []string) error {
		var res thumbcache.EvictionResult
		var err error
		if *maxBytes >= 0 {
			res, err = c.cache.EnforceBudget(ctx, *maxBytes)
		} else {
			res, err = c.lib.Cleanup(ctx)
		}
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.writeJSON(res)
		}
		fmt.Fprintf(c.stdout, "Cache held %s, removed %d thumbnail(s) freeing %s\n",
			memory.FormatBytes(res.TotalBefore), res.Removed, memory.FormatBytes(res.FreedBytes))
		return nil
	}
}

func refreshCommand(c *cli, _ *pflag.FlagSet) func(context.Context, []string) error {
	return func(ctx context.Context, _ []string) error {
		res, err := c.lib.Refresh(ctx)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.writeJSON(res)
		}
		fmt.Fprintf(c.stdout, "Checked %d album(s), removed %d\n", res.Checked, res.Removed)
		for _, id := range res.IDs {
			fmt.Fprintf(c.stdout, "  removed id %d\n", id)
		}
		return nil
	}
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) table(headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

// progressPrinter reports skipped scan roots on stderr.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Publish(name string, data any) {
	if name != events.ScanProgress {
		return
	}
	d, ok := data.(events.ScanProgressData)
	if !ok || d.Status != events.StatusSkip {
		return
	}
	fmt.Fprintf(p.w, "skipped %s (%s)\n", d.Path, d.Reason)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] so user input
// cannot inject terminal escapes into the error message.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Album Viewer operator tool")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: albumctl <command> [flags] [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scan [-r] PATH...          Register folder and zip albums")
	fmt.Fprintln(w, "  tree [-k KEYWORD]          Print the album hierarchy")
	fmt.Fprintln(w, "  cleanup [--max-bytes N]    Evict thumbnails down to the cache budget")
	fmt.Fprintln(w, "  refresh                    Remove albums whose files are gone")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Every command accepts --json. Output is JSON when stdout is not a terminal.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %s_DATABASE_PATH, %s_CACHE_DIR and the other server settings, or a .env file\n", startup.EnvPrefix, startup.EnvPrefix)
}
