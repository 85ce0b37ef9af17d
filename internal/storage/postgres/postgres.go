// Package postgres is the hosted ledger backend, built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ ledger.Store = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, logger: log.Default(log.ComponentStorage)}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations creates the ledger tables when they do not exist yet.
// Amounts are NUMERIC so balances stay exact.
func (s *Store) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			created_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			version BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS members (
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			participant_id BIGINT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			seq BIGSERIAL,
			PRIMARY KEY (group_id, participant_id)
		);
		CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			seq BIGINT NOT NULL,
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			payer_id BIGINT NOT NULL,
			description TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_expenses_group_seq ON expenses(group_id, seq);
		CREATE TABLE IF NOT EXISTS splits (
			expense_id UUID NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			participant_id BIGINT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			position INT NOT NULL,
			PRIMARY KEY (expense_id, participant_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	s.logger.Info("Postgres schema ready")
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO groups (name, created_by)
		 VALUES ($1, $2)
		 RETURNING id::text, created_at`,
		g.Name, int64(g.CreatedBy),
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (core.Group, error) {
	var (
		g         core.Group
		createdBy int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, name, created_by, created_at FROM groups WHERE id = $1::uuid`, groupID,
	).Scan(&g.ID, &g.Name, &createdBy, &g.CreatedAt)
	if isMissingGroup(err) {
		return core.Group{}, ledger.ErrGroupNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group %s: %w", groupID, err)
	}
	g.CreatedBy = core.ParticipantID(createdBy)
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func (s *Store) AddMember(ctx context.Context, groupID string, m core.Member) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	if err := groupExists(ctx, tx, groupID); err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO members (group_id, participant_id, first_name, username, joined_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)
		 ON CONFLICT (group_id, participant_id) DO NOTHING`,
		groupID, int64(m.ID), m.FirstName, m.Username, m.JoinedAt)
	if err != nil {
		return false, fmt.Errorf("add member %s to %s: %w", m.ID, groupID, err)
	}
	added := tag.RowsAffected() > 0
	if added {
		if _, err := bumpVersion(ctx, tx, groupID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit member: %w", err)
	}
	return added, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	if err := groupExists(ctx, s.pool, groupID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT participant_id, first_name, username, joined_at
		 FROM members WHERE group_id = $1::uuid ORDER BY seq`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var (
			m  core.Member
			id int64
		)
		if err := rows.Scan(&id, &m.FirstName, &m.Username, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.ID = core.ParticipantID(id)
		m.JoinedAt = m.JoinedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	seq, err := bumpVersion(ctx, tx, e.GroupID)
	if err != nil {
		return core.Expense{}, err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO expenses (seq, group_id, payer_id, description, amount)
		 VALUES ($1, $2::uuid, $3, $4, $5::numeric)
		 RETURNING id::text, created_at`,
		seq, e.GroupID, int64(e.PayerID), e.Description, e.Amount.String(),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()

	batch := &pgx.Batch{}
	for i, sp := range e.Splits {
		batch.Queue(
			`INSERT INTO splits (expense_id, participant_id, amount, is_paid, position)
			 VALUES ($1::uuid, $2, $3::numeric, $4, $5)`,
			e.ID, int64(sp.ParticipantID), sp.Amount.String(), sp.IsPaid, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return core.Expense{}, fmt.Errorf("create splits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.Expense{}, fmt.Errorf("commit expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense saved to Postgres",
		log.NewFields().WithExpense(e.GroupID, e.ID, int64(e.PayerID), e.Amount.String(), len(e.Splits)).ToSlice()...)
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	if err := groupExists(ctx, s.pool, groupID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT e.id::text, e.payer_id, e.description, e.amount::text, e.created_at,
		        sp.participant_id, sp.amount::text, sp.is_paid
		 FROM expenses e
		 LEFT JOIN splits sp ON sp.expense_id = e.id
		 WHERE e.group_id = $1::uuid
		 ORDER BY e.seq, sp.position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			id, description, amount string
			payerID                 int64
			createdAt               time.Time
			splitParticipant        *int64
			splitAmount             *string
			splitPaid               *bool
		)
		if err := rows.Scan(&id, &payerID, &description, &amount, &createdAt,
			&splitParticipant, &splitAmount, &splitPaid); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].ID != id {
			total, err := decimal.NewFromString(amount)
			if err != nil {
				return nil, fmt.Errorf("parse amount of expense %s: %w", id, err)
			}
			out = append(out, core.Expense{
				ID:          id,
				GroupID:     groupID,
				PayerID:     core.ParticipantID(payerID),
				Description: description,
				Amount:      total,
				CreatedAt:   createdAt.UTC(),
			})
		}

		if splitParticipant == nil || splitAmount == nil {
			continue
		}
		share, err := decimal.NewFromString(*splitAmount)
		if err != nil {
			return nil, fmt.Errorf("parse split amount of expense %s: %w", id, err)
		}
		last := &out[len(out)-1]
		last.Splits = append(last.Splits, core.Split{
			ParticipantID: core.ParticipantID(*splitParticipant),
			Amount:        share,
			IsPaid:        splitPaid != nil && *splitPaid,
		})
	}
	return out, rows.Err()
}

func (s *Store) LedgerVersion(ctx context.Context, groupID string) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM groups WHERE id = $1::uuid`, groupID).Scan(&version)
	if isMissingGroup(err) {
		return 0, ledger.ErrGroupNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger version of %s: %w", groupID, err)
	}
	return version, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func groupExists(ctx context.Context, q rowQuerier, groupID string) error {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM groups WHERE id = $1::uuid`, groupID).Scan(&one)
	if isMissingGroup(err) {
		return ledger.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup group %s: %w", groupID, err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx pgx.Tx, groupID string) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx,
		`UPDATE groups SET version = version + 1 WHERE id = $1::uuid RETURNING version`, groupID,
	).Scan(&version)
	if isMissingGroup(err) {
		return 0, ledger.ErrGroupNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bump ledger version of %s: %w", groupID, err)
	}
	return version, nil
}

// invalid_text_representation: the group ID is not a UUID, so no such group.
const sqlStateInvalidText = "22P02"

func isMissingGroup(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidText
}
