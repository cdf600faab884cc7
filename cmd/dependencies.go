package cmd

import (
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/auth"
	"github.com/frahmantamala/trip-expense/internal/balance"
	"github.com/frahmantamala/trip-expense/internal/chat"
	chatPostgres "github.com/frahmantamala/trip-expense/internal/chat/postgres"
	"github.com/frahmantamala/trip-expense/internal/core/events"
	"github.com/frahmantamala/trip-expense/internal/core/metrics"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
	expensePostgres "github.com/frahmantamala/trip-expense/internal/expense/postgres"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/messaging/amqp"
	"github.com/frahmantamala/trip-expense/internal/trip"
	tripPostgres "github.com/frahmantamala/trip-expense/internal/trip/postgres"
)

// application holds every long-lived component the commands share.
type application struct {
	Config *internal.Config
	Logger *slog.Logger

	DB     *sqlx.DB
	GormDB *gorm.DB

	Converter *currency.Converter
	Bus       *events.EventBus
	Metrics   *metrics.Metrics
	Broker    *amqp.Client

	Trips    *trip.Service
	Chat     *chat.Service
	Expenses *expense.Service
	Balances *balance.Service
	Auth     *auth.Service
}

func newApplication(cfg *internal.Config, lg *slog.Logger) (*application, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	table, err := currency.NewRateTable(cfg.Currency.Reference, cfg.Currency.Rates)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid currency table: %w", err)
	}

	app := &application{
		Config:    cfg,
		Logger:    lg,
		DB:        db,
		GormDB:    gormDB,
		Converter: currency.NewConverter(table),
		Bus:       events.NewEventBus(lg),
		Metrics:   newMetrics(cfg.Observability.Metrics),
		Auth:      newAuthService(cfg.Security),
	}

	broker, relay, err := newRelay(cfg.Messaging, app.Metrics, lg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	if relay != nil {
		app.Broker = broker
		relay.Register(app.Bus)
	}

	app.Trips = trip.NewService(tripPostgres.NewTripRepository(db), lg)
	app.Chat = chat.NewService(chatPostgres.NewChatRepository(gormDB), app.Trips, lg)

	splitter := split.NewFactory(split.Options{
		StrictManualSum: cfg.Settlement.StrictManualSum,
		Epsilon:         cfg.Settlement.ManualSumEpsilon,
	})
	app.Expenses = expense.NewService(
		expensePostgres.NewExpenseRepository(gormDB),
		app.Trips,
		app.Chat,
		app.Bus,
		app.Converter,
		splitter,
		lg,
	).WithMaxPageSize(cfg.Settlement.MaxPageSize)
	if app.Metrics != nil {
		app.Expenses.WithMetrics(app.Metrics)
	}

	app.Balances = balance.NewService(app.Trips, app.Expenses, app.Converter, lg)

	return app, nil
}

func (app *application) Close() {
	if app.Broker != nil {
		if err := app.Broker.Close(); err != nil {
			app.Logger.Error("Broker close error", "error", err)
		}
		app.Broker = nil
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Database close error", "error", err)
		}
		app.DB = nil
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both repositories see one set of connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
}
