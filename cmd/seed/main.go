package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"kintai/internal/config"
	"kintai/internal/db"
	apperrors "kintai/internal/errors"
	"kintai/internal/logging"
	"kintai/internal/repository"
	"kintai/internal/service"
)

type options struct {
	id        string
	password  string
	admin     bool
	firstName string
	lastName  string
	list      bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.id, "id", "root", "user id to create")
	flagSet.StringVar(&opts.password, "password", "", "initial password (generated and printed when empty)")
	flagSet.BoolVar(&opts.admin, "admin", true, "grant administrator rights")
	flagSet.StringVar(&opts.firstName, "first-name", "", "first name")
	flagSet.StringVar(&opts.lastName, "last-name", "", "last name")
	flagSet.BoolVar(&opts.list, "list", false, "list existing users and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return err
	}
	defer lg.Closer()

	gormDB, err := db.Open(cfg, lg.Base)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gormDB) }()
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	credentials := service.NewCredentialStore(repository.NewUserRepository(gormDB), cfg.BcryptCost)
	ctx := context.Background()

	if opts.list {
		return listUsers(ctx, credentials)
	}
	return ensureUser(ctx, credentials, opts, lg.Base)
}

// ensureUser creates the user unless the id is already taken. An existing
// user is left untouched, including its password.
func ensureUser(ctx context.Context, credentials service.CredentialStore, opts options, log *zap.Logger) error {
	password := opts.password
	generated := password == ""
	if generated {
		var err error
		if password, err = service.GeneratePassword(service.GeneratedPasswordLength); err != nil {
			return err
		}
	}

	u, err := credentials.CreateUser(ctx, opts.id, password, opts.admin, optional(opts.firstName), optional(opts.lastName))
	if errors.Is(err, apperrors.ErrDuplicateID) {
		log.Info("user already exists, nothing to do", zap.String("user", opts.id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", opts.id, err)
	}

	log.Info("user created", zap.String("user", u.ID), zap.Bool("admin", u.IsAdmin))
	if generated {
		fmt.Printf("id: %s\npassword: %s\n", u.ID, password)
	}
	return nil
}

func listUsers(ctx context.Context, credentials service.CredentialStore) error {
	users, err := credentials.ListUsers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADMIN\tNAME")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%t\t%s\n", u.ID, u.IsAdmin, displayName(deref(u.FirstName), deref(u.LastName)))
	}
	return w.Flush()
}

func displayName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
