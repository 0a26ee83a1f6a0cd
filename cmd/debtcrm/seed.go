package main

import (
	"context"
	"fmt"

	"debtcrm/internal/db"
	"debtcrm/internal/seed"
	"debtcrm/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with development users and debtors",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "debtors",
			Aliases: []string{"n"},
			Usage:   "Number of fake debtors to create",
			Value:   50,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete previously seeded debtors first",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		usersRepo := store.NewUserRepository(pool)
		debtorsRepo := store.NewDebtorRepository(pool)
		paymentsRepo := store.NewPaymentRepository(pool)
		followUpsRepo := store.NewFollowUpRepository(pool)

		logrus.Info("Seeding users...")
		if err := seed.SeedUsers(ctx, usersRepo); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		logrus.Info("Seeding debtors...")
		if err := seed.SeedDebtors(ctx, pool, debtorsRepo, paymentsRepo, followUpsRepo, c.Int("debtors"), c.Bool("reset")); err != nil {
			return fmt.Errorf("failed to seed debtors: %w", err)
		}

		debtors, err := debtorsRepo.Debtors(ctx)
		if err != nil {
			return fmt.Errorf("failed to count debtors: %w", err)
		}

		pp.Println(struct {
			Debtors     int
			Environment string
		}{
			Debtors:     len(debtors),
			Environment: cfg.Environment,
		})

		return nil
	},
}
