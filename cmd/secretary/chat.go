package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// exitWords end an interactive session.
var exitWords = map[string]bool{
	"exit": true,
	"quit": true,
	"退出":   true,
	"再见":   true,
}

// isExit reports whether line asks to end the session.
func isExit(line string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(line))]
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runChat runs the interactive REPL until an exit word, end of input,
// or ctx cancellation.
func runChat(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, configPath string) error {
	a, err := newApp(ctx, stderr, configPath)
	if err != nil {
		return err
	}
	loop := a.newLoop()

	you := color.New(color.FgCyan, color.Bold)
	bot := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	for _, c := range []*color.Color{you, bot, warn} {
		if isTerminal(stdout) {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	fmt.Fprintln(stdout, strings.Repeat("=", 48))
	fmt.Fprintln(stdout, "Campus secretary. Type 'exit' or 'quit' to leave.")
	fmt.Fprintln(stdout, strings.Repeat("=", 48))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		you.Fprint(stdout, "\nYou: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(stdout, "\nBye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(stdout, "\nBye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(stdout, "Bye!")
			return nil
		}

		resp := loop.Chat(ctx, line)
		bot.Fprint(stdout, "\nSecretary: ")
		fmt.Fprintln(stdout, resp.Content)
		if len(resp.ToolCalls) > 0 {
			names := make([]string, len(resp.ToolCalls))
			for i, tc := range resp.ToolCalls {
				names[i] = tc.Tool
			}
			warn.Fprintf(stdout, "  (tools: %s)\n", strings.Join(names, ", "))
		}
	}
}
