// Command warden is a terminal client for the assistant service.
//
// Usage:
//
//	warden [flags]
//	warden -login
//	warden -register
//	warden -forgot-password user@example.com
//	warden -reset-password <token>
//
// Flags:
//
//	-config string           Path to config file (default: ~/.warden/config.yaml)
//	-server string           Base URL of the assistant service (overrides config)
//	-login                   Prompt for credentials and log in
//	-register                Prompt for a new account and register
//	-logout                  Clear the stored credential record and exit
//	-ping                    Check connectivity to the service and exit
//	-forgot-password string  Request a password reset for the given email
//	-reset-password string   Redeem a password reset token
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/fwojciec/warden"
	bt "github.com/fwojciec/warden/bubbletea"
	"github.com/fwojciec/warden/config"
	"github.com/fwojciec/warden/conversation"
	"github.com/fwojciec/warden/credfile"
	"github.com/fwojciec/warden/httpapi"
	"github.com/fwojciec/warden/reset"
	"github.com/fwojciec/warden/session"
	"github.com/fwojciec/warden/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to config file")
		serverFlag = flag.String("server", "", "Base URL of the assistant service (overrides config)")
		doLogin    = flag.Bool("login", false, "Prompt for credentials and log in")
		doRegister = flag.Bool("register", false, "Prompt for a new account and register")
		doLogout   = flag.Bool("logout", false, "Clear the stored credential record and exit")
		doPing     = flag.Bool("ping", false, "Check connectivity to the service and exit")
		forgotFlag = flag.String("forgot-password", "", "Request a password reset for the given email")
		resetFlag  = flag.String("reset-password", "", "Redeem a password reset token")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *serverFlag != "" {
		cfg.Server.BaseURL = *serverFlag
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	credPath := cfg.Credentials.Path
	if credPath == "" {
		credPath, err = credfile.DefaultPath()
		if err != nil {
			return err
		}
	}

	client := httpapi.New(cfg.Server.BaseURL,
		httpapi.WithLogger(logger),
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
	)
	store := credfile.New(credPath)
	mgr := session.NewManager(client, store, session.WithLogger(logger))
	client.Bind(mgr, mgr)

	switch {
	case *doPing:
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", cfg.Server.BaseURL, err)
		}
		fmt.Printf("%s is reachable.\n", cfg.Server.BaseURL)
		return nil
	case *doLogout:
		mgr.Logout()
		fmt.Println("Logged out.")
		return nil
	case *forgotFlag != "":
		return runForgotPassword(ctx, client, logger, *forgotFlag)
	case *resetFlag != "":
		return runResetPassword(ctx, client, logger, *resetFlag)
	}

	sess, err := authenticate(ctx, mgr, *doLogin, *doRegister)
	if err != nil {
		return err
	}

	convStore := conversation.NewStore(client, conversation.WithLogger(logger))
	launcher := tools.NewLauncher(client, convStore, tools.WithLogger(logger))

	tuiModel := bt.New(convStore, launcher, sess, warden.DefaultTheme())
	program := bt.NewProgram(tuiModel)

	// The expiry funnel fires from arbitrary goroutines; Send is the only
	// safe way into the running program.
	mgr.SetExpiryFunc(func() {
		program.Send(bt.SessionExpiredMsg{})
	})
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	if _, ok := mgr.Current(); !ok && mgr.Expired() {
		fmt.Fprintln(os.Stderr, "Session expired. Run warden -login to sign in again.")
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Default(), nil
	}
	return config.Load(filepath.Join(home, ".warden", "config.yaml"))
}

// newLogger builds the structured logger. The TUI owns stdout, so logs go to
// the configured file or are discarded.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelOrInfo(cfg.Level))); err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	if cfg.Path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}

func levelOrInfo(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

// authenticate restores the persisted session, or walks the interactive
// login/register prompts when none exists or a fresh login was requested.
func authenticate(ctx context.Context, mgr *session.Manager, forceLogin, doRegister bool) (warden.Session, error) {
	if !forceLogin && !doRegister {
		if sess, ok := mgr.Restore(); ok {
			// Best effort: a stale display name is not worth blocking startup,
			// but a rejected token means the restored record is dead and the
			// user should log in now rather than mid-session.
			err := mgr.Refresh(ctx)
			switch {
			case err == nil:
				if current, ok := mgr.Current(); ok {
					return current, nil
				}
			case errors.Is(err, warden.ErrSessionExpired):
				fmt.Fprintln(os.Stderr, "Stored session has expired; please log in again.")
			default:
				return sess, nil
			}
		}
	}

	if doRegister {
		profile, err := promptRegister()
		if err != nil {
			return warden.Session{}, err
		}
		sess, err := mgr.Register(ctx, profile)
		if err != nil {
			return warden.Session{}, fmt.Errorf("register: %w", err)
		}
		return sess, nil
	}

	creds, err := promptLogin()
	if err != nil {
		return warden.Session{}, err
	}
	sess, err := mgr.Login(ctx, creds)
	if err != nil {
		return warden.Session{}, fmt.Errorf("login: %w", err)
	}
	return sess, nil
}

func runForgotPassword(ctx context.Context, remote warden.Remote, logger *slog.Logger, email string) error {
	flow := reset.NewFlow(remote, reset.WithLogger(logger))
	if err := flow.Request(ctx, email); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	if token := flow.Token(); token != "" {
		// Development servers hand the token back directly.
		fmt.Printf("Reset token: %s\nRun warden -reset-password %s to set a new password.\n", token, token)
		return nil
	}
	fmt.Println("Check your email for a reset link, then run warden -reset-password <token>.")
	return nil
}

func runResetPassword(ctx context.Context, remote warden.Remote, logger *slog.Logger, token string) error {
	flow := reset.NewFlow(remote, reset.WithLogger(logger))
	if err := flow.SeedToken(token); err != nil {
		return err
	}
	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if err := flow.Redeem(ctx, password, confirm); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	fmt.Println("Password changed. Run warden -login to sign in.")
	return nil
}

func promptLogin() (warden.Credentials, error) {
	username, err := promptLine("Username: ")
	if err != nil {
		return warden.Credentials{}, err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return warden.Credentials{}, err
	}
	return warden.Credentials{Username: username, Password: password}, nil
}

func promptRegister() (warden.Profile, error) {
	name, err := promptLine("Name: ")
	if err != nil {
		return warden.Profile{}, err
	}
	username, err := promptLine("Username: ")
	if err != nil {
		return warden.Profile{}, err
	}
	email, err := promptLine("Email: ")
	if err != nil {
		return warden.Profile{}, err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return warden.Profile{}, err
	}
	return warden.Profile{Name: name, Username: username, Email: email, Password: password}, nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(data), nil
}
