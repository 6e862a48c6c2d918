// Command seed-db creates the schema, loads the starter catalog and
// optionally registers a demo user.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/db"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/user"
	"github.com/xenking/sareeta-shop/internal/repository"
)

type itemJSON struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

type itemStore interface {
	Names(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, items []item.Item) (int64, error)
}

type userCreator interface {
	Create(ctx context.Context, req user.CreateRequest) (*user.User, error)
}

func main() {
	var (
		databaseURL  string
		itemsFile    string
		demoUser     string
		demoPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&itemsFile, "items-file", "", "path to items JSON file (default: built-in catalog)")
	flag.StringVar(&demoUser, "demo-user", "", "username of a demo user to create (or SAREETA_SEED_USER env)")
	flag.StringVar(&demoPassword, "demo-password", "", "password of the demo user (or SAREETA_SEED_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if demoUser == "" {
		demoUser = os.Getenv("SAREETA_SEED_USER")
	}
	if demoPassword == "" {
		demoPassword = os.Getenv("SAREETA_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, itemsFile, demoUser, demoPassword); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, itemsFile, demoUser, demoPassword string) error {
	lg.Info("Connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items, err := readItems(itemsFile)
	if err != nil {
		return errors.Wrap(err, "read items")
	}
	if err := seedItems(ctx, lg, repository.NewItemRepository(pool), items); err != nil {
		return errors.Wrap(err, "seed items")
	}

	if demoUser == "" {
		return nil
	}
	users := user.NewService(repository.NewUserRepository(pool), user.Config{})
	if err := seedUser(ctx, lg, users, demoUser, demoPassword); err != nil {
		return errors.Wrap(err, "seed demo user")
	}
	return nil
}

// readItems loads the catalog from path, or the embedded one when path is empty.
func readItems(path string) ([]item.Item, error) {
	if path == "" {
		return parseItems(db.SeedItems)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return parseItems(data)
}

func parseItems(data []byte) ([]item.Item, error) {
	var raw []itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse items JSON")
	}

	items := make([]item.Item, len(raw))
	for i, r := range raw {
		if r.Name == "" {
			return nil, errors.Errorf("item %d: name is required", i)
		}
		items[i] = item.Item{Name: r.Name, Price: r.Price, Description: r.Description}
	}
	return items, nil
}

// seedItems inserts the items whose names are not yet in the catalog, so the
// seed can be rerun safely.
func seedItems(ctx context.Context, lg *zap.Logger, store itemStore, items []item.Item) error {
	names, err := store.Names(ctx)
	if err != nil {
		return errors.Wrap(err, "list names")
	}
	existing := make(map[string]struct{}, len(names))
	for _, n := range names {
		existing[n] = struct{}{}
	}

	var missing []item.Item
	for _, it := range items {
		if _, ok := existing[it.Name]; ok {
			lg.Info("Item already present", zap.String("name", it.Name))
			continue
		}
		existing[it.Name] = struct{}{}
		missing = append(missing, it)
	}
	if len(missing) == 0 {
		return nil
	}

	n, err := store.Insert(ctx, missing)
	if err != nil {
		return errors.Wrap(err, "insert items")
	}
	lg.Info("Inserted items", zap.Int64("count", n))
	return nil
}

func seedUser(ctx context.Context, lg *zap.Logger, users userCreator, username, password string) error {
	u, err := users.Create(ctx, user.CreateRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
	})
	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		lg.Info("Demo user already exists", zap.String("username", username))
		return nil
	case err != nil:
		return err
	}
	lg.Info("Created demo user", zap.String("username", u.Username), zap.Int64("id", u.ID))
	return nil
}
