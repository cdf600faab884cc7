package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/trip-expense/internal"
	expenseDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/expense"
	"github.com/frahmantamala/trip-expense/internal/expense"
)

// ExpenseRepository stores expenses and their shares with GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func orderedShares(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create writes the expense and every share in one transaction.
func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(exp).Error; err != nil {
			return err
		}
		if len(exp.Shares) == 0 {
			return nil
		}
		for i := range exp.Shares {
			exp.Shares[i].ExpenseID = exp.ID
		}
		return tx.Create(&exp.Shares).Error
	})
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Preload("Shares", orderedShares).
		Where("id = ?", id).
		First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func filterScope(f expense.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("trip_id = ?", f.TripID)
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.Currency != "" {
			q = q.Where("currency = ?", f.Currency)
		}
		if f.ContributorID != "" {
			q = q.Where("contributor_id = ?", f.ContributorID)
		}
		if f.MemberID != "" {
			q = q.Where("EXISTS (SELECT 1 FROM expense_shares s WHERE s.expense_id = expenses.id AND s.member_id = ?)", f.MemberID)
		}
		if f.Status != "" {
			q = q.Where("settlement_status = ?", f.Status)
		}
		if f.DateFrom != nil {
			q = q.Where("expense_date >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			q = q.Where("expense_date < ?", *f.DateTo)
		}
		return q
	}
}

// Find returns matching expenses newest first, with shares. Limit <= 0 returns every match.
func (r *ExpenseRepository) Find(ctx context.Context, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	q := r.db.WithContext(ctx).
		Scopes(filterScope(f)).
		Preload("Shares", orderedShares).
		Order("expense_date DESC").
		Order("created_at DESC").
		Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var expenses []*expenseDatamodel.Expense
	if err := q.Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// MarkSharePaid is a compare-and-swap on the share state: only a pending share moves to paid.
// The expense row is locked first so payments on different shares of one expense resolve the
// status in turn, each seeing the others' writes.
func (r *ExpenseRepository) MarkSharePaid(ctx context.Context, expenseID, memberID string, paidAt time.Time, resolve expense.StatusFunc) (*expenseDatamodel.Expense, error) {
	var updated expenseDatamodel.Expense

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", expenseID).
			First(&expenseDatamodel.Expense{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrExpenseNotFound
			}
			return err
		}

		result := tx.Model(&expenseDatamodel.Share{}).
			Where("expense_id = ? AND member_id = ? AND state = ?", expenseID, memberID, expenseDatamodel.ShareStatePending).
			Updates(map[string]interface{}{
				"state":   expenseDatamodel.ShareStatePaid,
				"paid_at": paidAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.explainMissedSwap(tx, expenseID, memberID)
		}

		if err := tx.Preload("Shares", orderedShares).Where("id = ?", expenseID).First(&updated).Error; err != nil {
			return err
		}

		status, settlementStatus := resolve(&updated)
		if err := tx.Model(&expenseDatamodel.Expense{}).
			Where("id = ?", expenseID).
			Updates(map[string]interface{}{
				"status":            status,
				"settlement_status": settlementStatus,
				"updated_at":        paidAt,
			}).Error; err != nil {
			return err
		}
		updated.Status = status
		updated.SettlementStatus = settlementStatus
		updated.UpdatedAt = paidAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *ExpenseRepository) explainMissedSwap(tx *gorm.DB, expenseID, memberID string) error {
	var shares int64
	if err := tx.Model(&expenseDatamodel.Share{}).
		Where("expense_id = ? AND member_id = ?", expenseID, memberID).
		Count(&shares).Error; err != nil {
		return err
	}
	if shares > 0 {
		return internal.ErrShareAlreadyPaid
	}

	var expenses int64
	if err := tx.Model(&expenseDatamodel.Expense{}).Where("id = ?", expenseID).Count(&expenses).Error; err != nil {
		return err
	}
	if expenses == 0 {
		return internal.ErrExpenseNotFound
	}
	return internal.ErrShareNotFound
}

func (r *ExpenseRepository) SetChatMessageID(ctx context.Context, expenseID, messageID string) error {
	result := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ?", expenseID).
		Update("chat_message_id", messageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) UpdateContent(ctx context.Context, expenseID string, update expense.ContentUpdate) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Category != nil {
		updates["category"] = *update.Category
	}
	if update.Date != nil {
		updates["expense_date"] = *update.Date
	}

	result := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ?", expenseID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, expenseID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&expenseDatamodel.Share{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", expenseID).Delete(&expenseDatamodel.Expense{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrExpenseNotFound
		}
		return nil
	})
}
