// Package main provides a CLI tool for seeding the database with the
// operator account and, optionally, a demo catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"freshledger/internal/config"
	"freshledger/internal/core/clock"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/auth"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/internal/infrastructure/storage/postgres/auth_repo"
	"freshledger/internal/infrastructure/storage/postgres/catalog_repo"
	"freshledger/pkg/logger"
)

// seedNamespace derives stable ids so reseeding updates rows instead of
// duplicating them.
var seedNamespace = uuid.MustParse("6f1c1d1e-3b55-4a8e-9c55-0c7b3e5f4a10")

func seedID(kind, name string) id.ID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
		Process:     "seed",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFor(cfg.DatabaseURL, postgres.RoleSeed, cfg.DBMaxConns, cfg.DBStatementTimeout))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	if err := seedOperator(ctx, txManager, cfg, log); err != nil {
		log.Fatalw("failed to seed operator", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedOperator(ctx context.Context, txManager *postgres.TxManager, cfg *config.Config, log *logger.Logger) error {
	username := getEnv("SEED_OPERATOR_USERNAME", "admin")
	password := os.Getenv("SEED_OPERATOR_PASSWORD")
	if password == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("SEED_OPERATOR_PASSWORD is required in production")
		}
		password = "freshledger-admin"
	}

	jwt := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	svc := auth.NewService(auth_repo.NewOperatorRepo(txManager), txManager, jwt, clock.NewSystem(), auth.DefaultServiceConfig())

	hash, err := svc.HashPassword(password)
	if err != nil {
		return err
	}
	if err := svc.Bootstrap(ctx, username, hash); err != nil {
		return err
	}
	log.Infow("operator ready", "username", auth.NormalizeUsername(username))
	return nil
}

type productSeed struct {
	name  string
	unit  types.Unit
	price string
	tiers []tierSeed
}

type tierSeed struct {
	unit   types.Unit
	minQty string
	price  string
}

var demoProducts = []productSeed{
	{name: "Mango Tommy", unit: types.UnitKg, price: "4.20", tiers: []tierSeed{
		{types.UnitKg, "0", "4.20"},
		{types.UnitKg, "10", "3.80"},
		{types.UnitCount, "0", "1.50"},
	}},
	{name: "Avocado Hass", unit: types.UnitCount, price: "1.10", tiers: []tierSeed{
		{types.UnitCount, "0", "1.10"},
		{types.UnitCount, "24", "0.95"},
	}},
	{name: "Strawberry", unit: types.UnitKg, price: "6.50"},
	{name: "Pineapple", unit: types.UnitCount, price: "2.80"},
}

var demoCustomers = []string{"Ana", "Bruno", "Carla", "Diego"}

func seedDemoData(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	log.Info("seeding demo data...")
	repo := catalog_repo.NewRepo(txManager)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, name := range demoCustomers {
			if err := repo.UpsertCustomer(ctx, &catalog.Customer{ID: seedID("customer", name), Name: name}); err != nil {
				return err
			}
		}

		for _, p := range demoProducts {
			product := &catalog.Product{ID: seedID("product", p.name), Name: p.name, DefaultUnit: p.unit}
			if err := repo.UpsertProduct(ctx, product); err != nil {
				return err
			}

			latest, err := repo.LatestCatalogPrice(ctx, product.ID)
			if err != nil {
				return err
			}
			if latest == nil {
				unit := p.unit
				if err := repo.InsertCatalogPrice(ctx, &catalog.CatalogPrice{
					ID:        id.New(),
					ProductID: product.ID,
					Date:      today,
					SalePrice: types.MustDecimal(p.price),
					Unit:      &unit,
				}); err != nil {
					return err
				}
			}

			tiers, err := repo.ActivePriceTiers(ctx, product.ID)
			if err != nil {
				return err
			}
			if len(tiers) > 0 {
				continue
			}
			for _, t := range p.tiers {
				if err := repo.InsertPriceTier(ctx, &catalog.PriceTier{
					ID:        id.New(),
					ProductID: product.ID,
					Unit:      t.unit,
					MinQty:    types.MustDecimal(t.minQty),
					Price:     types.MustDecimal(t.price),
					Active:    true,
				}); err != nil {
					return err
				}
			}
		}

		log.Infow("demo catalog seeded", "products", len(demoProducts), "customers", len(demoCustomers))
		return nil
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
