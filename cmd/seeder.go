package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/trip"
	"github.com/frahmantamala/trip-expense/pkg/logger"
)

var clearData bool

var seedTables = []string{"expense_shares", "expenses", "chat_messages", "trip_members", "trips"}

const seedOwner = "alice"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a sample trip, members and expenses for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		// seeding runs without a broker so no test events leave the machine
		cfg.Messaging.AMQPURL = ""

		app, err := newApplication(cfg, logger.Discard())
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer app.Close()

		ctx := context.Background()

		if clearData {
			for _, table := range seedTables {
				if err := app.GormDB.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing trips, expenses and messages")
		}

		existing, err := app.Trips.TripsForUser(ctx, seedOwner)
		if err != nil {
			log.Fatalf("failed to look up trips: %v", err)
		}
		if len(existing) > 0 {
			fmt.Printf("%s already has %d trip(s); run with --clear to reseed\n", seedOwner, len(existing))
			return
		}

		t, err := app.Trips.CreateTrip(ctx, seedOwner, trip.CreateTripDTO{
			Name:    "Lisbon weekend",
			Members: []string{"bob", "carol"},
		})
		if err != nil {
			log.Fatalf("failed to create trip: %v", err)
		}
		fmt.Println("Seeded trip:", t.ID)

		samples := []struct {
			actor string
			dto   expense.CreateExpenseDTO
			payBy []string
		}{
			{
				actor: "alice",
				dto: expense.CreateExpenseDTO{
					Amount: 90, Currency: "USD", Description: "Dinner at Tasca", Category: "food",
					SplitType: "even",
				},
				payBy: []string{"bob"},
			},
			{
				actor: "bob",
				dto: expense.CreateExpenseDTO{
					Amount: 50, Currency: "EUR", Description: "Tram passes", Category: "transport",
					SplitType: "even", SplitBetween: []string{"alice", "bob"},
				},
			},
			{
				actor: "carol",
				dto: expense.CreateExpenseDTO{
					Amount: 120, Currency: "USD", Description: "Apartment cleaning", Category: "lodging",
					SplitType:    "manual",
					ManualSplits: map[string]float64{"alice": 50, "bob": 40, "carol": 30},
				},
				payBy: []string{"alice", "bob"},
			},
		}

		for _, s := range samples {
			created, err := app.Expenses.CreateExpense(ctx, s.actor, t.ID, s.dto)
			if err != nil {
				log.Fatalf("failed to create expense %q: %v", s.dto.Description, err)
			}
			for _, member := range s.payBy {
				if _, err := app.Expenses.MarkSharePaid(ctx, member, created.ID, member); err != nil {
					log.Fatalf("failed to mark %s paid on %q: %v", member, s.dto.Description, err)
				}
			}
			fmt.Printf("Seeded expense: %s (%.2f %s)\n", s.dto.Description, s.dto.Amount, s.dto.Currency)
		}

		if err := app.Bus.Drain(ctx); err != nil {
			log.Printf("event handlers still running: %v", err)
		}
		fmt.Println("Sample data seeded successfully")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
