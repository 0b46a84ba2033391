package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/example/event-listing/internal/adapter"
	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/demo"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func newFlagSet(env *environment, name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(env.out)
	return flags
}

func parseFlags(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, flags.Args())
	}
	return nil
}

func runMigrate(ctx context.Context, env *environment, args []string) error {
	if err := parseFlags(newFlagSet(env, "migrate"), args); err != nil {
		return err
	}

	storage, err := env.connect(ctx)
	if err != nil {
		return err
	}
	applied, err := storage.Pool().Migrate(ctx, env.logger)
	if err != nil {
		return err
	}
	version, err := storage.Pool().SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range applied {
		fmt.Fprintf(env.out, "applied %05d %s\n", migration.Version, migration.Source)
	}
	fmt.Fprintf(env.out, "schema version %d (%d applied)\n", version, len(applied))
	return nil
}

func runSeed(ctx context.Context, env *environment, args []string) error {
	flags := newFlagSet(env, "seed")
	password := flags.String("password", demo.DefaultPassword, "password for the sample accounts")
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	storage, err := env.open(ctx)
	if err != nil {
		return err
	}
	repos := adapter.New(storage)
	users := application.NewUserServiceWithLogger(repos.Users, nil, uuid.NewString, env.now, env.logger)
	events := application.NewEventServiceWithLogger(repos.Events, uuid.NewString, env.now, env.logger)

	result, err := demo.Seed(ctx, users, events, demo.Options{Password: *password, Now: env.now, Logger: env.logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "users: %d created, %d existing\n", result.UsersCreated, result.UsersSkipped)
	fmt.Fprintf(env.out, "events: %d created, %d existing\n", result.EventsCreated, result.EventsSkipped)
	return nil
}

func runCreateUser(ctx context.Context, env *environment, args []string) error {
	flags := newFlagSet(env, "create-user")
	email := flags.String("email", "", "account email (required)")
	firstName := flags.String("first-name", "", "first name (required)")
	lastName := flags.String("last-name", "", "last name (required)")
	passwordStdin := flags.Bool("password-stdin", false, "read the password from the first line of stdin")
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	password, err := readNewPassword(env, *passwordStdin)
	if err != nil {
		return err
	}

	storage, err := env.open(ctx)
	if err != nil {
		return err
	}
	users := application.NewUserServiceWithLogger(adapter.New(storage).Users, nil, uuid.NewString, env.now, env.logger)

	user, err := users.CreateUser(ctx, application.CreateUserParams{
		Email:     *email,
		Password:  password,
		FirstName: *firstName,
		LastName:  *lastName,
	})
	if err != nil {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			return fmt.Errorf("invalid account: %s", strings.Join(vErr.Messages(), "; "))
		}
		if errors.Is(err, application.ErrAlreadyExists) {
			return fmt.Errorf("an account with email %s already exists", strings.TrimSpace(*email))
		}
		return err
	}

	fmt.Fprintf(env.out, "created user %s <%s>\n", user.ID, user.Email)
	return nil
}

func runPurgeSessions(ctx context.Context, env *environment, args []string) error {
	if err := parseFlags(newFlagSet(env, "purge-sessions"), args); err != nil {
		return err
	}

	storage, err := env.open(ctx)
	if err != nil {
		return err
	}
	sessions := application.NewSessionServiceWithLogger(adapter.New(storage).Sessions, nil, env.now, 0, env.logger)

	removed, err := sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "removed %d expired session(s)\n", removed)
	return nil
}

// readNewPassword takes the password from stdin when fromStdin is set and
// otherwise prompts twice on the terminal.
func readNewPassword(env *environment, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(env.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("empty password on stdin")
		}
		return password, nil
	}

	file, ok := env.in.(interface{ Fd() uintptr })
	if !ok || !isTerminal(int(file.Fd())) {
		return "", fmt.Errorf("%w: stdin is not a terminal, use -password-stdin", errUsage)
	}
	fd := int(file.Fd())

	fmt.Fprint(env.out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(env.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(env.out, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(env.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
