package persist

import (
	"context"
	"encoding/json"

	"github.com/wydtm/tmsrv/internal/model"
)

// ItemRow is one persisted container slot, identified by (char, container,
// slot) rather than a synthetic item id, since the authoritative position
// of an item instance IS its slot (§3 ownership invariant).
type ItemRow struct {
	CharID    int32
	Container int16 // matches model.ContainerKind
	Slot      int16
	ItemID    int32
	Effects   [3][2]int16
	Value     int32
	ObjID     int64
}

type ItemRepo struct {
	db *DB
}

func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) LoadByCharID(ctx context.Context, charID int32) ([]ItemRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT char_id, container, slot, item_id, effects, value, obj_id
		 FROM character_items WHERE char_id = $1`, charID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemRow
	for rows.Next() {
		var it ItemRow
		var raw []byte
		if err := rows.Scan(&it.CharID, &it.Container, &it.Slot, &it.ItemID, &raw, &it.Value, &it.ObjID); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &it.Effects)
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func (r *ItemRepo) MaxObjID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(obj_id), 0) FROM character_items`).Scan(&maxID)
	return maxID, err
}

// SaveContainer replaces all persisted slots for one (char, container) pair
// with the container's current contents, skipping empty slots.
func (r *ItemRepo) SaveContainer(ctx context.Context, charID int32, kind model.ContainerKind, c *model.Container) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM character_items WHERE char_id = $1 AND container = $2`, charID, int16(kind),
	); err != nil {
		return err
	}

	var execErr error
	c.Each(func(slot int, it model.Item) {
		if execErr != nil || it.Empty() {
			return
		}
		effects, err := json.Marshal(it.Effects)
		if err != nil {
			execErr = err
			return
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO character_items (char_id, container, slot, item_id, effects, value)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			charID, int16(kind), int16(slot), it.ItemID, effects, it.Value,
		); err != nil {
			execErr = err
		}
	})
	if execErr != nil {
		return execErr
	}

	return tx.Commit(ctx)
}
