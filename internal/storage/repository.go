package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := log.Default(log.ComponentStorage)
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	g.ID = uuid.NewString()
	g.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, int64(g.CreatedBy), g.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}

	r.logger.InfoContext(ctx, "Group created", log.FieldGroupID, g.ID, "name", g.Name)
	return g, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, groupID string) (core.Group, error) {
	var (
		g         core.Group
		createdBy int64
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM groups WHERE id = ?`, groupID,
	).Scan(&g.ID, &g.Name, &createdBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, ledger.ErrGroupNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group %s: %w", groupID, err)
	}
	g.CreatedBy = core.ParticipantID(createdBy)
	if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Group{}, fmt.Errorf("parse created_at of group %s: %w", groupID, err)
	}
	return g, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, groupID string, m core.Member) (bool, error) {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = r.now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO members (group_id, participant_id, first_name, username, joined_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (group_id, participant_id) DO NOTHING`,
		groupID, int64(m.ID), m.FirstName, m.Username, m.JoinedAt.Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("add member %s to %s: %w", m.ID, groupID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add member %s to %s: %w", m.ID, groupID, err)
	}
	if n > 0 {
		if _, err := bumpVersion(ctx, tx, groupID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit member: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	if err := groupExists(ctx, r.db, groupID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT participant_id, first_name, username, joined_at
		 FROM members WHERE group_id = ? ORDER BY rowid`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var (
			m        core.Member
			id       int64
			joinedAt string
		)
		if err := rows.Scan(&id, &m.FirstName, &m.Username, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.ID = core.ParticipantID(id)
		if m.JoinedAt, err = time.Parse(timeLayout, joinedAt); err != nil {
			return nil, fmt.Errorf("parse joined_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddExpense writes the expense and its splits in one transaction and bumps
// the group's ledger version.
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := bumpVersion(ctx, tx, e.GroupID)
	if err != nil {
		return core.Expense{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, seq, group_id, payer_id, description, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, seq, e.GroupID, int64(e.PayerID), e.Description, e.Amount.String(), e.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	for _, s := range e.Splits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO splits (expense_id, participant_id, amount, is_paid) VALUES (?, ?, ?, ?)`,
			e.ID, int64(s.ParticipantID), s.Amount.String(), s.IsPaid)
		if err != nil {
			return core.Expense{}, fmt.Errorf("create split for %s: %w", s.ParticipantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.NewFields().WithExpense(e.GroupID, e.ID, int64(e.PayerID), e.Amount.String(), len(e.Splits)).ToSlice()...)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	if err := groupExists(ctx, r.db, groupID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.payer_id, e.description, e.amount, e.created_at,
		        s.participant_id, s.amount, s.is_paid
		 FROM expenses e
		 LEFT JOIN splits s ON s.expense_id = e.id
		 WHERE e.group_id = ?
		 ORDER BY e.seq, s.rowid`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			id, description, amount, createdAt string
			payerID                            int64
			splitParticipant                   sql.NullInt64
			splitAmount                        sql.NullString
			splitPaid                          sql.NullBool
		)
		if err := rows.Scan(&id, &payerID, &description, &amount, &createdAt,
			&splitParticipant, &splitAmount, &splitPaid); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].ID != id {
			e := core.Expense{
				ID:          id,
				GroupID:     groupID,
				PayerID:     core.ParticipantID(payerID),
				Description: description,
			}
			if e.Amount, err = decimal.NewFromString(amount); err != nil {
				return nil, fmt.Errorf("parse amount of expense %s: %w", id, err)
			}
			if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
				return nil, fmt.Errorf("parse created_at of expense %s: %w", id, err)
			}
			out = append(out, e)
		}

		if !splitParticipant.Valid {
			continue
		}
		splitAmt, err := decimal.NewFromString(splitAmount.String)
		if err != nil {
			return nil, fmt.Errorf("parse split amount of expense %s: %w", id, err)
		}
		last := &out[len(out)-1]
		last.Splits = append(last.Splits, core.Split{
			ParticipantID: core.ParticipantID(splitParticipant.Int64),
			Amount:        splitAmt,
			IsPaid:        splitPaid.Bool,
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) LedgerVersion(ctx context.Context, groupID string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM groups WHERE id = ?`, groupID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrGroupNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger version of %s: %w", groupID, err)
	}
	return version, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func groupExists(ctx context.Context, q queryer, groupID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM groups WHERE id = ?`, groupID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup group %s: %w", groupID, err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, groupID string) (int64, error) {
	var version int64
	err := tx.QueryRowContext(ctx,
		`UPDATE groups SET version = version + 1 WHERE id = ? RETURNING version`, groupID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrGroupNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bump ledger version of %s: %w", groupID, err)
	}
	return version, nil
}
