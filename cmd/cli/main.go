// Command ledgerwise is a terminal client for the LedgerWise API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerwise/internal/session"
)

const (
	defaultAPIURL  = "http://localhost:8080"
	requestTimeout = 2 * time.Minute
)

const usage = `usage: ledgerwise <command> [flags]

commands:
  login    sign in and remember the session
  logout   forget the saved session
  whoami   show the signed-in user
  add      add a transaction to the ledger
  quote    calculate GST on an amount
  upload   read an invoice and optionally add it to the ledger
  ask      ask the bookkeeping assistant a question
`

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := session.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	a := &app{
		store:      session.NewStore(path),
		apiURL:     os.Getenv("LEDGERWISE_API_URL"),
		httpClient: &http.Client{Timeout: requestTimeout},
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	os.Exit(a.run(ctx, os.Args[1:]))
}

// app holds the dependencies shared by every command.
type app struct {
	store      *session.Store
	apiURL     string
	httpClient *http.Client
	stdout     io.Writer
	stderr     io.Writer
}

type command func(ctx context.Context, args []string) error

func (a *app) commands() map[string]command {
	return map[string]command{
		"login":  a.login,
		"logout": a.logout,
		"whoami": a.whoami,
		"add":    a.add,
		"quote":  a.quote,
		"upload": a.upload,
		"ask":    a.ask,
	}
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}

	cmd, ok := a.commands()[args[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err := cmd(ctx, args[1:]); err != nil {
		switch {
		case errors.Is(err, errUsage):
			return 2
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(a.stderr, "cancelled")
			return 130
		case errors.Is(err, session.ErrNoSession):
			fmt.Fprintln(a.stderr, "not signed in: run `ledgerwise login` first")
		default:
			fmt.Fprintf(a.stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}
