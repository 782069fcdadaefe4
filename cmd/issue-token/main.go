// Command issue-token registers a user in the catalog database and prints a
// signed viewer token for it.
//
//	issue-token -name alice -caps can_manage_loans,can_edit_catalog -ttl 24h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"library_catalog/pkg/access"
	"library_catalog/pkg/catalog"
	"library_catalog/pkg/config"
	"library_catalog/pkg/database"

	"github.com/google/uuid"
)

func main() {
	name := flag.String("name", "", "username (required)")
	id := flag.String("id", "", "user id; a new UUID when empty")
	caps := flag.String("caps", "", "comma separated capabilities: can_manage_loans, can_edit_catalog")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	db, err := database.Open(database.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, MaxRetries: 3, RetryDelay: time.Second})
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	token, viewer, err := issue(context.Background(), catalog.NewRepository(db), []byte(cfg.JWTSecret), *id, *name, *caps, *ttl)
	if err != nil {
		slog.Error("issue token", "err", err)
		os.Exit(1)
	}
	slog.Info("token issued", "user_id", viewer.UserID, "username", viewer.Username, "expires_in", ttl.String())
	fmt.Println(token)
}

type userStore interface {
	EnsureUser(ctx context.Context, id, username string) error
}

func issue(ctx context.Context, users userStore, secret []byte, id, name, caps string, ttl time.Duration) (string, access.Viewer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", access.Viewer{}, errors.New("-name is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	var requested []string
	if caps != "" {
		requested = strings.Split(caps, ",")
	}
	granted := access.ParseCapabilities(requested)
	if len(granted) != len(requested) {
		return "", access.Viewer{}, fmt.Errorf("unknown capability in %q", caps)
	}

	if err := users.EnsureUser(ctx, id, name); err != nil {
		return "", access.Viewer{}, fmt.Errorf("register user: %w", err)
	}
	viewer := access.Viewer{UserID: id, Username: name, Capabilities: granted}
	token, err := access.IssueToken(secret, viewer, ttl)
	if err != nil {
		return "", access.Viewer{}, err
	}
	return token, viewer, nil
}
