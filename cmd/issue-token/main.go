// Команда issue-token выпускает access-токен для локальной разработки:
//
//	issue-token -user demo-consumer -role consumer
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/foodcart/internal/auth"
	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const envJWTSecret = "FOODCART_JWT_SECRET"

type config struct {
	userID string
	role   string
	secret string
	ttl    time.Duration
}

func main() {
	cfg, err := readConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}
	if err := run(os.Stdout, cfg, time.Now); err != nil {
		fail("%v", err)
	}
}

func readConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (config, error) {
	var cfg config
	fs.StringVar(&cfg.userID, "user", "", "user id (subject of the token)")
	fs.StringVar(&cfg.role, "role", string(domain.RoleConsumer), "role: consumer|store|admin")
	fs.StringVar(&cfg.secret, "secret", "", "signing secret (fallback: "+envJWTSecret+")")
	fs.DurationVar(&cfg.ttl, "ttl", 15*time.Minute, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.userID = strings.TrimSpace(cfg.userID)
	if cfg.secret == "" {
		cfg.secret = getenv(envJWTSecret)
	}

	switch {
	case cfg.userID == "":
		return config{}, fmt.Errorf("-user is required")
	case cfg.secret == "":
		return config{}, fmt.Errorf("%s (or -secret) is required", envJWTSecret)
	case cfg.ttl <= 0:
		return config{}, fmt.Errorf("-ttl must be > 0")
	}
	return cfg, nil
}

func run(out io.Writer, cfg config, now func() time.Time) error {
	role, err := domain.ParseRole(cfg.role)
	if err != nil {
		return err
	}

	manager := auth.NewTokenManager(cfg.secret, cfg.ttl)
	token, expiresAt, err := manager.Issue(domain.Principal{UserID: cfg.userID, Role: role})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	_, err = fmt.Fprintf(out, "%s\n# user=%s role=%s expires_at=%s (in %s)\n",
		token, cfg.userID, role, expiresAt.UTC().Format(time.RFC3339), expiresAt.Sub(now()).Round(time.Second))
	return err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
