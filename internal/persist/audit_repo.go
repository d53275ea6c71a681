package persist

import (
	"context"

	"github.com/wydtm/tmsrv/internal/security"
)

type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Flush durably writes every in-memory audit entry since the last flush.
// internal/security.Log is append-only and in-process; this is what makes
// it durable across restarts, run on a periodic drain loop alongside the
// WAL flush.
func (r *AuditRepo) Flush(ctx context.Context, entries []security.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO security_audit_log (id, at, kind, account_id, character_id, actor, detail)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.At, int16(e.Kind), e.AccountID, e.CharacterID, e.Actor, e.Detail,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
