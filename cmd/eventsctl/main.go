// Command eventsctl runs maintenance tasks against the event site database.
//
// Usage:
//
//	eventsctl [-dsn DSN] [-v] <command> [flags]
//
// Commands:
//
//	migrate          apply pending schema migrations
//	seed             load the sample accounts and events
//	create-user      register an account, prompting for the password
//	purge-sessions   delete expired sessions
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/example/event-listing/internal/config"
	"github.com/example/event-listing/internal/logging"
	"github.com/example/event-listing/internal/persistence/sqlite"
)

// errUsage marks a command line the user has to fix.
var errUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = map[string]command{
	"migrate":        {summary: "apply pending schema migrations", run: runMigrate},
	"seed":           {summary: "load the sample accounts and events", run: runSeed},
	"create-user":    {summary: "register an account", run: runCreateUser},
	"purge-sessions": {summary: "delete expired sessions", run: runPurgeSessions},
}

// environment is the state shared by every command of one invocation.
type environment struct {
	dsn    string
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time

	storage *sqlite.Storage
}

// connect opens the database once per invocation.
func (e *environment) connect(ctx context.Context) (*sqlite.Storage, error) {
	if e.storage != nil {
		return e.storage, nil
	}
	storage, err := sqlite.Open(ctx, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.dsn, err)
	}
	e.storage = storage
	return storage, nil
}

// open connects and applies pending migrations.
func (e *environment) open(ctx context.Context) (*sqlite.Storage, error) {
	storage, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, e.logger); err != nil {
		return nil, err
	}
	return storage, nil
}

func (e *environment) close() {
	if e.storage == nil {
		return
	}
	if err := e.storage.Close(); err != nil {
		e.logger.Error("failed to close storage", "error", err)
	}
	e.storage = nil
}

func main() {
	if err := config.LoadDotenv(); err != nil {
		fmt.Fprintln(os.Stderr, "eventsctl:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("eventsctl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dsn := flags.String("dsn", config.SQLiteDSN(), "SQLite data source name")
	verbose := flags.Bool("v", false, "log debug output")
	flags.Usage = func() { usage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() == 0 {
		usage(stderr, flags)
		return 2
	}

	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "eventsctl: unknown command %q\n", name)
		usage(stderr, flags)
		return 2
	}

	env := &environment{
		dsn:    *dsn,
		in:     stdin,
		out:    stdout,
		logger: logging.New(logging.Options{Output: stderr, Production: !*verbose, Debug: *verbose}).With("command", name),
		now:    time.Now,
	}
	defer env.close()

	err := cmd.run(ctx, env, flags.Args()[1:])
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "eventsctl %s: %v\n", name, err)
		return 2
	default:
		fmt.Fprintf(stderr, "eventsctl %s: %v\n", name, err)
		return 1
	}
}

func usage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "usage: eventsctl [flags] <command> [command flags]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nflags:")
	flags.PrintDefaults()
}
