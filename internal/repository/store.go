package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. All
// repositories run their queries through it so the same repository code
// serves both direct access and transactional access.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories over a single database handle and provides
// the transactional scope for multi-step mutations. Inside ExecTx every
// repository is bound to the same transaction, so an order, its items, the
// stock adjustments and their history entries commit or roll back as one
// unit.
type Store interface {
	Products() ProductRepository
	Orders() OrderRepository
	History() HistoryRepository
	Alerts() AlertRepository
	ExecTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db       *sql.DB
	products ProductRepository
	orders   OrderRepository
	history  HistoryRepository
	alerts   AlertRepository
}

// NewStore creates a Store over the given database connection.
func NewStore(db *sql.DB) Store {
	return newSQLStore(db, db)
}

func newSQLStore(db *sql.DB, q DBTX) *sqlStore {
	return &sqlStore{
		db:       db,
		products: NewProductRepository(q),
		orders:   NewOrderRepository(q),
		history:  NewHistoryRepository(q),
		alerts:   NewAlertRepository(q),
	}
}

func (s *sqlStore) Products() ProductRepository { return s.products }
func (s *sqlStore) Orders() OrderRepository     { return s.orders }
func (s *sqlStore) History() HistoryRepository  { return s.history }
func (s *sqlStore) Alerts() AlertRepository     { return s.alerts }

// ExecTx runs fn with a Store bound to a single transaction. If fn returns
// an error the transaction is rolled back and the error is returned as-is so
// callers can still match sentinel errors.
func (s *sqlStore) ExecTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(newSQLStore(s.db, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
