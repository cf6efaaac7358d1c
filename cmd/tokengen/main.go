// tokengen prints a bearer token for a directory user, registering the user first when asked.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/youssefsn2/PFE/internal/chat"
	"github.com/youssefsn2/PFE/internal/config"
	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
	"github.com/youssefsn2/PFE/internal/realtime"
	"github.com/youssefsn2/PFE/internal/search"
	"github.com/youssefsn2/PFE/internal/store"
)

func main() {
	handle := flag.String("handle", "", "user handle (required)")
	displayName := flag.String("name", "", "display name used with -create")
	create := flag.Bool("create", false, "register the user if the handle is unknown")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if *handle == "" {
		flag.Usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail("load configuration", err)
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		fail("open database", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := repo.GetUserByHandle(ctx, *handle)
	if err != nil {
		fail("look up user", err)
	}
	if user == nil {
		if !*create {
			fmt.Fprintf(os.Stderr, "tokengen: no user %q (use -create)\n", *handle)
			os.Exit(1)
		}
		svc := chat.NewService(repo, realtime.NewRegistry(1, nil), search.NewService(nil, repo, nil), nil)
		user, err = svc.RegisterUser(ctx, domain.RegisterUserRequest{Handle: *handle, DisplayName: *displayName})
		if err != nil {
			fail("register user", err)
		}
	}

	token, err := identity.NewIssuer(cfg.Auth.JWTSecret, *ttl).Issue(user)
	if err != nil {
		fail("issue token", err)
	}
	fmt.Println(token)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "tokengen: %s: %v\n", what, err)
	os.Exit(1)
}
