package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Имена частичных уникальных индексов из миграций.
const (
	oneAcceptedIndex        = "proposals_one_accepted_idx"
	oneActivePerMasterIndex = "proposals_one_active_per_master_idx"
)

// querier - общий интерфейс пула соединений и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore - реализация Store для базы данных.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

// NewPostgresStore создает новый экземпляр PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

// WithinRequestLock открывает транзакцию и берёт строку заявки FOR UPDATE,
// поэтому конкурентные изменения одной заявки выполняются по очереди.
func (s *PostgresStore) WithinRequestLock(ctx context.Context, requestID string, fn func(tx Store) error) error {
	if s.pool == nil {
		// Уже внутри транзакции: блокируем строку в ней же.
		if err := lockRequest(ctx, s.db, requestID); err != nil {
			return err
		}
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockRequest(ctx, tx, requestID); err != nil {
		return err
	}
	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func lockRequest(ctx context.Context, db querier, requestID string) error {
	var id string
	err := db.QueryRow(ctx, `SELECT id FROM requests WHERE id = $1 FOR UPDATE`, requestID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock request %s: %w", requestID, err)
	}
	return nil
}

// mapWriteError переводит нарушения частичных уникальных индексов в ошибки хранилища.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case oneAcceptedIndex:
		return ErrAlreadyAccepted
	case oneActivePerMasterIndex:
		return ErrDuplicateProposal
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
