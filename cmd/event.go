package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/trip-expense/internal/core/events"
	"github.com/frahmantamala/trip-expense/internal/messaging/amqp"
	"github.com/frahmantamala/trip-expense/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the expense event types and push test events to the message broker`,
}

var listEventTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the expense event types and their routing keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		keys := amqp.NewRelay(nil, cfg.Messaging.RoutingKey, logger.Discard())
		for _, eventType := range events.AllExpenseEventTypes {
			fmt.Fprintf(os.Stdout, "%-22s %s\n", eventType, keys.RoutingKey(eventType))
		}
		return nil
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event to the broker",
	Long:  `Publish a synthetic expense event through the AMQP relay to check the broker wiring`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventTripID string
	eventAmount float64
)

func testEvent(eventType string) (events.Event, error) {
	expenseID := "test-" + uuid.NewString()
	switch eventType {
	case events.EventTypeExpenseCreated:
		return events.NewExpenseCreatedEvent(expenseID, eventTripID, "cli", eventAmount, "USD", "test event"), nil
	case events.EventTypeSharePaid:
		return events.NewSharePaidEvent(expenseID, eventTripID, "cli", "cli", eventAmount, "USD", "partial"), nil
	case events.EventTypeExpenseDeleted:
		return events.NewExpenseDeletedEvent(expenseID, eventTripID, "cli"), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func publishTestEvent(eventType string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Env, cfg.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	if !cfg.Messaging.Enabled() {
		return fmt.Errorf("messaging.amqp_url is not set")
	}

	event, err := testEvent(eventType)
	if err != nil {
		return err
	}

	client, relay, err := newRelay(cfg.Messaging, nil, lg)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := relay.Handle(ctx, event); err != nil {
		return err
	}

	lg.Info("test event published",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"routing_key", relay.RoutingKey(event.EventType()))
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventTripID, "trip", "test-trip", "trip id carried by the event")
	publishEventCmd.Flags().Float64Var(&eventAmount, "amount", 10, "amount carried by the event")

	eventCmd.AddCommand(listEventTypesCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
