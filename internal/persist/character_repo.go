package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// CharacterRow is the persisted shape of a character, independent of the
// in-memory world.Character the tick goroutine mutates.
type CharacterRow struct {
	ID           int32
	AccountName  string
	Name         string
	Level        int16
	Exp          int64
	Alignment    int32
	HP, MP       int32
	MaxHP, MaxMP int32
	Str, Dex, Con, Wis, Cha, Intel int16
	X, Y         int32
	MapID        int16
	Heading      int16
	Gold         int64
	BankGold     int64
	GuildID      int32
	GuildRank    int16
	PKCount      int32
	DeletedAt    *time.Time
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) LoadByAccount(ctx context.Context, accountName string) ([]CharacterRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, account_name, name, level, exp, alignment,
		        hp, mp, max_hp, max_mp, str, dex, con, wis, cha, intel,
		        x, y, map_id, heading, gold, bank_gold, guild_id, guild_rank, pk_count, deleted_at
		 FROM characters
		 WHERE account_name = $1 AND deleted_at IS NULL
		 ORDER BY id`, accountName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CharacterRow
	for rows.Next() {
		var c CharacterRow
		if err := rows.Scan(
			&c.ID, &c.AccountName, &c.Name, &c.Level, &c.Exp, &c.Alignment,
			&c.HP, &c.MP, &c.MaxHP, &c.MaxMP, &c.Str, &c.Dex, &c.Con, &c.Wis, &c.Cha, &c.Intel,
			&c.X, &c.Y, &c.MapID, &c.Heading, &c.Gold, &c.BankGold, &c.GuildID, &c.GuildRank, &c.PKCount, &c.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, account_name, name, level, exp, alignment,
		        hp, mp, max_hp, max_mp, str, dex, con, wis, cha, intel,
		        x, y, map_id, heading, gold, bank_gold, guild_id, guild_rank, pk_count, deleted_at
		 FROM characters WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(
		&c.ID, &c.AccountName, &c.Name, &c.Level, &c.Exp, &c.Alignment,
		&c.HP, &c.MP, &c.MaxHP, &c.MaxMP, &c.Str, &c.Dex, &c.Con, &c.Wis, &c.Cha, &c.Intel,
		&c.X, &c.Y, &c.MapID, &c.Heading, &c.Gold, &c.BankGold, &c.GuildID, &c.GuildRank, &c.PKCount, &c.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (
			account_name, name, level, exp, alignment,
			hp, mp, max_hp, max_mp, str, dex, con, wis, cha, intel,
			x, y, map_id, heading, gold, bank_gold
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
		) RETURNING id`,
		c.AccountName, c.Name, c.Level, c.Exp, c.Alignment,
		c.HP, c.MP, c.MaxHP, c.MaxMP, c.Str, c.Dex, c.Con, c.Wis, c.Cha, c.Intel,
		c.X, c.Y, c.MapID, c.Heading, c.Gold, c.BankGold,
	).Scan(&c.ID)
}

func (r *CharacterRepo) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1)`, name,
	).Scan(&exists)
	return exists, err
}

func (r *CharacterRepo) CountByAccount(ctx context.Context, accountName string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM characters WHERE account_name = $1 AND deleted_at IS NULL`,
		accountName,
	).Scan(&count)
	return count, err
}

func (r *CharacterRepo) SoftDelete(ctx context.Context, name string, graceDays int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET deleted_at = NOW() + ($2 || ' days')::interval
		 WHERE name = $1 AND deleted_at IS NULL`,
		name, graceDays,
	)
	return err
}

func (r *CharacterRepo) HardDelete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM characters WHERE name = $1`, name)
	return err
}

func (r *CharacterRepo) CleanExpiredDeletions(ctx context.Context, accountName string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM characters WHERE account_name = $1 AND deleted_at IS NOT NULL AND deleted_at <= NOW()`,
		accountName,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SavePosition persists just a character's location, called far more often
// than a full save (on map transfer and periodic checkpoints, §4.3).
func (r *CharacterRepo) SavePosition(ctx context.Context, name string, x, y int32, mapID, heading int16) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET x = $1, y = $2, map_id = $3, heading = $4 WHERE name = $5`,
		x, y, mapID, heading, name,
	)
	return err
}

// SaveCharacter persists the full mutable character record (§4.3 Saving
// lifecycle transition, entered on logout/map-change/periodic checkpoint).
func (r *CharacterRepo) SaveCharacter(ctx context.Context, c *CharacterRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET
			level = $1, exp = $2, alignment = $3, hp = $4, mp = $5, max_hp = $6, max_mp = $7,
			x = $8, y = $9, map_id = $10, heading = $11,
			str = $12, dex = $13, con = $14, wis = $15, cha = $16, intel = $17,
			gold = $18, bank_gold = $19, guild_id = $20, guild_rank = $21, pk_count = $22
		WHERE name = $23`,
		c.Level, c.Exp, c.Alignment, c.HP, c.MP, c.MaxHP, c.MaxMP,
		c.X, c.Y, c.MapID, c.Heading,
		c.Str, c.Dex, c.Con, c.Wis, c.Cha, c.Intel,
		c.Gold, c.BankGold, c.GuildID, c.GuildRank, c.PKCount,
		c.Name,
	)
	return err
}

// BookmarkRow is one entry in the recall-point JSONB column.
type BookmarkRow struct {
	Name  string `json:"name"`
	X     int32  `json:"x"`
	Y     int32  `json:"y"`
	MapID int16  `json:"map_id"`
}

func (r *CharacterRepo) LoadBookmarks(ctx context.Context, name string) ([]BookmarkRow, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(bookmarks, '[]'::jsonb) FROM characters WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bookmarks []BookmarkRow
	if err := json.Unmarshal(raw, &bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (r *CharacterRepo) SaveBookmarks(ctx context.Context, name string, bookmarks []BookmarkRow) error {
	data, err := json.Marshal(bookmarks)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `UPDATE characters SET bookmarks = $1 WHERE name = $2`, data, name)
	return err
}

func (r *CharacterRepo) LoadKnownSkills(ctx context.Context, name string) ([]int32, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(known_skills, '[]'::jsonb) FROM characters WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var skills []int32
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil, err
	}
	return skills, nil
}

func (r *CharacterRepo) SaveKnownSkills(ctx context.Context, name string, skills []int32) error {
	if skills == nil {
		skills = []int32{}
	}
	data, err := json.Marshal(skills)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `UPDATE characters SET known_skills = $1 WHERE name = $2`, data, name)
	return err
}
