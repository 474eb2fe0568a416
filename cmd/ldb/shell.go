package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// historyFile returns the path to the shell history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cellarkv_ldb_history")
}

// shell runs the interactive command loop on the open database.
func (r *runner) shell() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer saveHistory(line)

	fmt.Fprintf(r.out, "ldb shell on %s (table %q)\n", r.db.Path(), r.cfg.table)
	fmt.Fprintln(r.out, "Type 'help' for available commands.")

	for {
		input, err := line.Prompt("ldb> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nBye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if done := r.shellLine(input); done {
			fmt.Fprintln(r.out, "Bye!")
			return nil
		}
	}
}

// shellLine executes one shell line and reports whether the shell should exit.
func (r *runner) shellLine(input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		for _, c := range commands {
			fmt.Fprintf(r.out, "  %-22s %s\n", c.usage, c.help)
		}
		fmt.Fprintf(r.out, "  %-22s %s\n", "use <table>", "Switch the current table")
		fmt.Fprintf(r.out, "  %-22s %s\n", "exit", "Leave the shell")
	case "use":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: use <table>")
			break
		}
		r.cfg.table = args[0]
	default:
		if err := r.exec(cmd, args); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	}
	return false
}

func completer(line string) []string {
	var out []string
	for _, name := range append(commandNames(), "use", "help", "exit") {
		if strings.HasPrefix(name, strings.ToLower(line)) {
			out = append(out, name)
		}
	}
	return out
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.name)
	}
	return names
}

func saveHistory(line *liner.State) {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}
}
