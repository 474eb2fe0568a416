// Package main provides the ldb CLI tool for inspecting cellarkv databases.
//
// Usage:
//
//	ldb --db=<path> [options] <command> [args]
//
// Commands:
//
//	tables                 List tables
//	scan                   Scan the entries of --table
//	get <key>              Get the value for a key
//	put <key> <val>        Put a key-value pair
//	delete <key>           Delete a key
//	drop <table>           Delete a table
//	rename <old> <new>     Rename a table
//	compact                Compact the database file
//	savepoints             List persistent savepoints
//	savepoint              Create a persistent savepoint
//	restore <id>           Restore a persistent savepoint
//	shell                  Interactive shell
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/aalhour/cellarkv"
)

type config struct {
	dbPath      string
	table       string
	hexOutput   bool
	limit       int
	from        string
	to          string
	optionsFile string
	create      bool
	verbose     bool
}

var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one ldb invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := pflag.NewFlagSet("ldb", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.dbPath, "db", "", "Path to the database (required)")
	fs.StringVarP(&cfg.table, "table", "t", "default", "Table to read or write")
	fs.BoolVar(&cfg.hexOutput, "hex", false, "Output keys and values in hex format")
	fs.IntVar(&cfg.limit, "limit", 0, "Limit number of entries (0 = unlimited)")
	fs.StringVar(&cfg.from, "from", "", "Start key for scan (inclusive)")
	fs.StringVar(&cfg.to, "to", "", "End key for scan (exclusive)")
	fs.StringVar(&cfg.optionsFile, "options", "", "HuJSON options file")
	fs.BoolVar(&cfg.create, "create_if_missing", false, "Create the database if it doesn't exist")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "Log database activity to stderr")
	help := fs.BoolP("help", "h", false, "Print help")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help || fs.NArg() == 0 {
		printUsage(stdout, fs)
		return 0
	}
	if cfg.dbPath == "" {
		fmt.Fprintln(stderr, "Error: --db flag is required")
		return 1
	}

	db, err := openDB(&cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Error: close: %v\n", err)
		}
	}()

	r := &runner{db: db, cfg: &cfg, out: stdout}
	if fs.Arg(0) == "shell" {
		err = r.shell()
	} else {
		err = r.exec(fs.Arg(0), fs.Args()[1:])
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "ldb - cellarkv database inspection tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: ldb --db=<path> [options] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-22s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(w, "  %-22s %s\n", "shell", "Interactive shell")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, fs.FlagUsages())
}

func openDB(cfg *config, stderr io.Writer) (*cellarkv.Database, error) {
	opts := cellarkv.DefaultOptions()
	if cfg.optionsFile != "" {
		var err error
		if opts, err = cellarkv.ReadOptionsFile(cfg.optionsFile); err != nil {
			return nil, err
		}
	}
	// The CLI always works on a file.
	opts.Backend = cellarkv.BackendFile
	level := cellarkv.LogLevelError
	if cfg.verbose {
		level = cellarkv.LogLevelDebug
	}
	opts.Logger = cellarkv.NewLogger(stderr, level)

	if cfg.create {
		return cellarkv.Create(cfg.dbPath, opts)
	}
	return cellarkv.Open(cfg.dbPath, opts)
}
