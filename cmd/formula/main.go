// Command formula evaluates formulas and manages schema-typed records whose
// formula fields are computed at read time.
//
// Usage:
//
//	formula [-log-format text|json] [-log-level LEVEL] COMMAND [flags] [args]
//
// Commands:
//
//	eval      evaluate a formula against -set name=value pairs or a -values file
//	inspect   list the fields and functions a formula references
//	validate  check a formula against a schema file without live data
//	put       create or update a record
//	show      print a record with its computed formula fields
//	list      list the records of a schema
//
// Records are kept in a SQLite database, by default under the XDG data
// directory ($XDG_DATA_HOME/goformula/things.db).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/sandrolain/goformula/pkg/logging"
)

// errUsage marks errors caused by bad command-line input.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"eval", "evaluate a formula", runEval},
	{"inspect", "list referenced fields and functions", runInspect},
	{"validate", "check a formula against a schema", runValidate},
	{"put", "create or update a record", runPut},
	{"show", "print a record with computed fields", runShow},
	{"list", "list the records of a schema", runList},
}

// app carries what every command needs.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("formula", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		logFormat = fs.String("log-format", "text", "Log format: text or json")
		logLevel  = fs.String("log-level", "warn", "Log level: debug, info, warn or error")
	)
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format, err := logging.ParseFormat(*logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	a := &app{
		stdout: stdout,
		stderr: stderr,
		logger: logging.New(
			logging.WithFormat(format),
			logging.WithLevel(level),
			logging.WithOutput(stderr),
		),
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	name, rest := fs.Arg(0), fs.Args()[1:]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		err := cmd.run(ctx, a, rest)
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", name)
	fs.Usage()
	return 2
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "Usage: formula [flags] COMMAND [flags] [args]")
	fmt.Fprintln(out, "\nCommands:")
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}

// defaultDBPath returns the database location under the XDG data directory.
func defaultDBPath() string {
	return filepath.Join(xdg.DataHome, "goformula", "things.db")
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
