// Command seed migrates the database and fills it with a few demo users and
// messages. On a rerun existing users are reused and their demo messages are
// not inserted again.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vaughan-dsouza/clubhouse/internal/auth"
	"github.com/vaughan-dsouza/clubhouse/internal/config"
	"github.com/vaughan-dsouza/clubhouse/internal/db"
	"github.com/vaughan-dsouza/clubhouse/internal/logging"
	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
	"github.com/vaughan-dsouza/clubhouse/internal/storage/postgres"
)

type demoUser struct {
	first, last, email, password string
	member, admin                bool
}

var demoUsers = []demoUser{
	{first: "u1", last: "u1", email: "test@test.com", password: "u1"},
	{first: "u", last: "u2", email: "test2@test.com", password: "u2", member: true, admin: true},
}

var demoMessages = []struct {
	title, text, author string
}{
	{"T1", "m1", "test@test.com"},
	{"T2", "m2", "test2@test.com"},
	{"T3", "m3", "test@test.com"},
}

func main() {
	_ = config.LoadDotEnv()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DB_URI")
	}
	if len(os.Args) > 1 {
		dsn = os.Args[1]
	}

	log := logging.New(os.Stdout, "text", "info")
	if dsn == "" {
		log.Error("usage: seed [database-url] (or set DATABASE_URL)")
		os.Exit(2)
	}

	if err := run(context.Background(), dsn, log); err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed done")
}

func run(ctx context.Context, dsn string, log *slog.Logger) error {
	conn, err := db.Connect(ctx, dsn, db.PoolOptions{MaxOpen: 2, MaxIdle: 2})
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return seed(ctx, postgres.NewUserStore(conn), postgres.NewMessageStore(conn), auth.NewBcryptHasher(auth.DefaultCost), log)
}

// seed inserts the demo users and the messages of users it created.
func seed(ctx context.Context, users storage.UserStore, messages storage.MessageStore, hasher auth.Hasher, log *slog.Logger) error {
	ids := make(map[string]int64, len(demoUsers))
	created := make(map[string]bool, len(demoUsers))
	for _, du := range demoUsers {
		hash, err := hasher.Hash(du.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", du.email, err)
		}

		u, err := users.CreateUser(ctx, models.User{
			FirstName:    du.first,
			LastName:     du.last,
			Email:        du.email,
			PasswordHash: hash,
			IsMember:     du.member,
			IsAdmin:      du.admin,
		})
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			if u, err = users.FindByEmail(ctx, du.email); err != nil {
				return err
			}
			log.Info("user exists", "email", du.email)
		case err != nil:
			return fmt.Errorf("create user %s: %w", du.email, err)
		default:
			log.Info("user created", "email", du.email, "id", u.ID)
			created[du.email] = true
		}
		ids[du.email] = u.ID
	}

	for _, dm := range demoMessages {
		if !created[dm.author] {
			log.Info("skip message of existing user", "title", dm.title, "author", dm.author)
			continue
		}
		msg, err := messages.CreateMessage(ctx, models.Message{
			Title:    dm.title,
			Text:     dm.text,
			AuthorID: ids[dm.author],
		})
		if err != nil {
			return fmt.Errorf("create message %q: %w", dm.title, err)
		}
		log.Info("message created", "id", msg.ID, "title", msg.Title)
	}
	return nil
}
