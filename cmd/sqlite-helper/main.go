// ABOUTME: Command-line front end for the sqlite-helper table library
// ABOUTME: Provides get/set/has/delete/list/indexes subcommands over one table

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	sqlitehelper "github.com/PandaDriver156/sqlite-helper"
	"github.com/PandaDriver156/sqlite-helper/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the CLI config file.
// Priority: SQLITE_HELPER_CONFIG env var > XDG_CONFIG_HOME/sqlite-helper/config.yaml
// > ~/.config/sqlite-helper/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SQLITE_HELPER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sqlite-helper", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sqlite-helper <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  get <column> <value>            Look up the first matching row")
		fmt.Println("  has <column> <value>            Check whether a matching row exists")
		fmt.Println("  set [flags] <col=val>...        Insert a row, or update with --where")
		fmt.Println("  delete <column> <value>         Delete matching rows")
		fmt.Println("  list                            Print every row")
		fmt.Println("  indexes <column>                Print one column across all rows")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "get":
		err = runGet(ctx, os.Args[2:])
	case "has":
		err = runHas(ctx, os.Args[2:])
	case "set":
		err = runSet(ctx, os.Args[2:])
	case "delete":
		err = runDelete(ctx, os.Args[2:])
	case "list":
		err = runList(ctx)
	case "indexes":
		err = runIndexes(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist (environment overrides still apply).
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openTable() (*sqlitehelper.Table, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg.Logging)
	return sqlitehelper.New(cfg.Options())
}

func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

func runGet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sqlite-helper get <column> <value>")
	}
	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	row, err := table.Get(ctx, args[0], parseValue(args[1]))
	if errors.Is(err, sqlitehelper.ErrNotFound) {
		color.New(color.FgYellow).Println("not found")
		return nil
	}
	if err != nil {
		return err
	}
	return printRow(row)
}

func runHas(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sqlite-helper has <column> <value>")
	}
	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	found, err := table.Has(ctx, args[0], parseValue(args[1]))
	if err != nil {
		return err
	}
	fmt.Println(found)
	return nil
}

func runSet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	where := fs.String("where", "", "comma-separated col=val predicates; turns the set into an update")
	withID := fs.Bool("with-id", false, "add a generated uuid under the id column when inserting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: sqlite-helper set [--where col=val] [--with-id] <col=val>...")
	}

	columns, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}

	intent := sqlitehelper.Intent(columns)
	if *where != "" {
		intent.Where, err = parsePairs(strings.Split(*where, ","))
		if err != nil {
			return err
		}
	}
	if *withID && intent.Where == nil {
		if _, ok := columns["id"]; !ok {
			columns["id"] = uuid.NewString()
		}
	}

	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	row, err := table.Set(ctx, intent)
	if err != nil {
		return err
	}
	return printRow(row)
}

func runDelete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sqlite-helper delete <column> <value>")
	}
	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	affected, err := table.Delete(ctx, args[0], parseValue(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d row(s)\n", affected)
	return nil
}

func runList(ctx context.Context) error {
	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	rows, err := table.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := printRow(row); err != nil {
			return err
		}
	}
	color.New(color.FgHiBlack).Printf("%d row(s)\n", len(rows))
	return nil
}

func runIndexes(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sqlite-helper indexes <column>")
	}
	table, err := openTable()
	if err != nil {
		return err
	}
	defer table.Close()

	values, err := table.Indexes(ctx, args[0])
	if err != nil {
		return err
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}

// parsePairs turns col=val arguments into a row, JSON-decoding values so
// numbers, booleans and structured literals keep their types.
func parsePairs(args []string) (sqlitehelper.Row, error) {
	row := sqlitehelper.Row{}
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("expected col=val, got %q", arg)
		}
		row[col] = parseValue(val)
	}
	return row, nil
}

// parseValue interprets a command-line value the same way the row codec
// interprets stored text: valid JSON becomes the typed value, anything else
// stays a string.
func parseValue(s string) any {
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}
	return parsed
}

func printRow(row sqlitehelper.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
