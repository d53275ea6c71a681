package persist

import (
	"context"
	"time"

	"github.com/wydtm/tmsrv/internal/security"
)

type BanRepo struct {
	db *DB
}

func NewBanRepo(db *DB) *BanRepo {
	return &BanRepo{db: db}
}

// LoadActive returns every non-expired ban, used to repopulate
// security.Monitor's in-memory ban list on startup.
func (r *BanRepo) LoadActive(ctx context.Context) ([]security.Ban, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT COALESCE(ip,''), COALESCE(account_id,0), COALESCE(character_id,0), reason, start_at, end_at, is_permanent
		 FROM bans WHERE is_permanent = TRUE OR end_at > NOW()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []security.Ban
	for rows.Next() {
		var b security.Ban
		var endAt *time.Time
		if err := rows.Scan(&b.IP, &b.AccountID, &b.CharacterID, &b.Reason, &b.Start, &endAt, &b.IsPermanent); err != nil {
			return nil, err
		}
		if endAt != nil {
			b.End = *endAt
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *BanRepo) Insert(ctx context.Context, b security.Ban) error {
	var endAt *time.Time
	if !b.IsPermanent {
		endAt = &b.End
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO bans (ip, account_id, character_id, reason, start_at, end_at, is_permanent)
		 VALUES (NULLIF($1,''), NULLIF($2,0), NULLIF($3,0), $4, $5, $6, $7)`,
		b.IP, b.AccountID, b.CharacterID, b.Reason, b.Start, endAt, b.IsPermanent)
	return err
}
