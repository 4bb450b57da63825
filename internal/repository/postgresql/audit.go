package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.AuditRepository {
	return &auditRepository{db: db}
}

const insertAuditSQL = `
	INSERT INTO audit_logs (id, entity_type, entity_id, action, actor_id, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Record writes the entry. Inside a transaction it uses a savepoint so a
// failed insert leaves the surrounding transaction usable.
func (r *auditRepository) Record(ctx context.Context, e audit.Entry) error {
	args := []any{e.ID, e.EntityType, e.EntityID, string(e.Action), e.ActorID, e.Detail, e.CreatedAt}

	tx, ok := currentTx(ctx)
	if !ok {
		if _, err := r.db.Exec(ctx, insertAuditSQL, args...); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
		return nil
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open audit savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, insertAuditSQL, args...); err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release audit savepoint: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, entity_type, entity_id, action, actor_id, detail, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
