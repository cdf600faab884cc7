package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/trip-expense/internal"
	tripDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/trip"
)

type Repository struct {
	db *sqlx.DB
}

func NewTripRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *tripDatamodel.Trip, members []tripDatamodel.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create trip: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO trips (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`),
		t.ID, t.Name, t.OwnerID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	insertMember := r.db.Rebind(`INSERT INTO trip_members (trip_id, user_id, joined_at) VALUES (?, ?, ?)`)
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, insertMember, m.TripID, m.UserID, m.JoinedAt); err != nil {
			return fmt.Errorf("insert trip member %s: %w", m.UserID, err)
		}
	}

	return tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*tripDatamodel.Trip, error) {
	var t tripDatamodel.Trip
	err := r.db.GetContext(ctx, &t,
		r.db.Rebind(`SELECT id, name, owner_id, created_at FROM trips WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return &t, nil
}

func (r *Repository) ListMembers(ctx context.Context, tripID string) ([]tripDatamodel.Member, error) {
	members := []tripDatamodel.Member{}
	err := r.db.SelectContext(ctx, &members,
		r.db.Rebind(`SELECT trip_id, user_id, joined_at FROM trip_members WHERE trip_id = ? ORDER BY joined_at, user_id`), tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip members: %w", err)
	}
	return members, nil
}

func (r *Repository) AddMember(ctx context.Context, m tripDatamodel.Member) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO trip_members (trip_id, user_id, joined_at) VALUES (?, ?, ?)`),
		m.TripID, m.UserID, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("add trip member: %w", err)
	}
	return nil
}

func (r *Repository) IsMember(ctx context.Context, tripID, userID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind(`SELECT COUNT(1) FROM trip_members WHERE trip_id = ? AND user_id = ?`), tripID, userID)
	if err != nil {
		return false, fmt.Errorf("check trip member: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) ListTripIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids,
		r.db.Rebind(`SELECT trip_id FROM trip_members WHERE user_id = ? ORDER BY joined_at, trip_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list trips for user: %w", err)
	}
	return ids, nil
}
