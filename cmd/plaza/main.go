// Command plaza is a CLI client for the plaza community board.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/auth"
	"github.com/minsu-cho/plaza/internal/crypto"
	"github.com/minsu-cho/plaza/internal/limiter"
	"github.com/minsu-cho/plaza/internal/migrate"
	"github.com/minsu-cho/plaza/internal/repository/postgres"
	"github.com/minsu-cho/plaza/internal/service"
	"github.com/minsu-cho/plaza/internal/session"
	"github.com/minsu-cho/plaza/internal/store"
	"github.com/minsu-cho/plaza/internal/store/badgerstore"
)

// ---- config/data dirs ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "plaza")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "plaza")
}

func defaultDataDir() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "plaza")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "plaza")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }
func keyPath() string   { return filepath.Join(cfgDir(), "session.key") }

// loadOrCreateKey returns the token signing key, generating and persisting one
// on first run so sessions survive process restarts.
func loadOrCreateKey() ([]byte, error) {
	if b, err := os.ReadFile(keyPath()); err == nil && len(b) > 0 {
		return b, nil
	}
	key, err := crypto.RandBytes(32)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath(), key, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `plaza CLI
Usage:
  plaza [-dsn DSN | -data-dir DIR] [-verbose] <cmd> [args]

Commands:
  version
  signup   -email <addr> -secret <secret> -name <display name>
  login    -email <addr> -secret <secret>
  logout
  whoami
  post     list
  post     read  -id <id>
  post     write -title <title> [-content <text> | -file <path>]  ('-'=stdin)
  post     rm    -id <id>
  post     like  -id <id>
  comment  add   -post <id> [-content <text> | -file <path>]
  comment  rm    -id <id>
  comment  like  -id <id>

The board is stored in an embedded database under -data-dir unless -dsn
points at PostgreSQL.
`)
	os.Exit(2)
}

// ---- backend wiring ----

const sessionTTL = 30 * 24 * time.Hour

// app bundles the wired client: one store backend, the session manager, and
// the services on top.
type app struct {
	logger   *zap.Logger
	session  *session.Manager
	posts    service.PostService
	comments service.CommentService
	closers  []func()
}

func (a *app) close() {
	a.session.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// buildApp selects the backend, restores any persisted session, and
// constructs the services.
func buildApp(ctx context.Context, dsn, dataDir string, verbose bool) (*app, error) {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	a := &app{logger: logger}

	var (
		st   store.Store
		repo auth.AccountRepo
		lim  limiter.Limiter
	)
	if dsn != "" {
		if err := migrate.Up(ctx, dsn); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		db := &postgres.DB{Pool: pool}
		st = postgres.NewDocumentStore(db)
		repo = postgres.NewAccountRepo(db)
		lim = limiter.NewPG(pool, 15*time.Minute, 5, 15*time.Minute)
	} else {
		bs, err := badgerstore.Open(filepath.Join(dataDir, "board"), badgerstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = bs.Close() })
		st = bs
		repo = badgerstore.NewAccounts(bs)
	}

	key, err := loadOrCreateKey()
	if err != nil {
		return nil, err
	}
	opts := []auth.LocalOption{
		auth.WithTokenFile(tokenPath()),
		auth.WithLogger(logger),
	}
	if lim != nil {
		host, _ := os.Hostname()
		opts = append(opts, auth.WithLimiter(lim, host))
	}
	provider := auth.NewLocal(repo, key, sessionTTL, opts...)

	// subscribe before Start so the restored-session event reaches the manager
	a.session = session.NewManager(provider, session.WithLogger(logger))
	if err := provider.Start(ctx); err != nil {
		return nil, err
	}

	a.posts = service.NewPostService(st, a.session, logger)
	a.comments = service.NewCommentService(st, a.session, logger)
	return a, nil
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the selected backend.
func main() {
	// global flags
	dsn := flag.String("dsn", "", "PostgreSQL DSN (empty = embedded store)")
	dataDir := flag.String("data-dir", defaultDataDir(), "embedded store directory")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	if cmd == "version" {
		fmt.Printf("plaza %s (%s)\n", version, buildDate)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := buildApp(ctx, *dsn, *dataDir, *verbose)
	if err != nil {
		fail(err)
	}
	defer a.close()

	switch cmd {

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		secret := fs.String("secret", "", "secret")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *secret == "" || *name == "" {
			fmt.Fprintln(os.Stderr, "need -email, -secret and -name")
			os.Exit(1)
		}
		p, err := a.session.SignUp(ctx, *email, *secret, *name)
		if err != nil {
			fail(err)
		}
		fmt.Println(p.UID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		secret := fs.String("secret", "", "secret")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *secret == "" {
			fmt.Fprintln(os.Stderr, "need -email and -secret")
			os.Exit(1)
		}
		if _, err := a.session.SignIn(ctx, *email, *secret); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		if err := a.session.SignOut(ctx); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "whoami":
		p := a.session.CurrentUser()
		if p == nil {
			fail(errors.New("not signed in"))
		}
		printJSON(p)

	case "post":
		runPost(ctx, a, flag.Args()[1:])

	case "comment":
		runComment(ctx, a, flag.Args()[1:])

	default:
		usage()
	}
}
