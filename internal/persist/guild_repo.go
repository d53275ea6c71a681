package persist

import (
	"context"
	"errors"

	"github.com/wydtm/tmsrv/internal/model"
)

// GuildRow is a row from the guilds table.
type GuildRow struct {
	ID        int32
	Name      string
	LeaderID  int32
	Treasury  int64
	Notice    string
	MarkID    int32
	FoundedAt int64
}

// GuildMemberRow is a row from the guild_members table.
type GuildMemberRow struct {
	GuildID  int32
	CharID   int32
	CharName string
	Rank     int16
	Notes    string
}

// GuildRepo handles all guild-related database operations.
type GuildRepo struct {
	db *DB
}

func NewGuildRepo(db *DB) *GuildRepo {
	return &GuildRepo{db: db}
}

// LoadAll loads all guilds and their members, called at server startup to
// rebuild internal/model.GuildManager's in-memory state.
func (r *GuildRepo) LoadAll(ctx context.Context) ([]GuildRow, []GuildMemberRow, error) {
	guildRows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, leader_id, treasury, notice, mark_id, extract(epoch from founded_at)::bigint
		 FROM guilds ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer guildRows.Close()

	var guilds []GuildRow
	for guildRows.Next() {
		var g GuildRow
		if err := guildRows.Scan(&g.ID, &g.Name, &g.LeaderID, &g.Treasury, &g.Notice, &g.MarkID, &g.FoundedAt); err != nil {
			return nil, nil, err
		}
		guilds = append(guilds, g)
	}
	if err := guildRows.Err(); err != nil {
		return nil, nil, err
	}

	memberRows, err := r.db.Pool.Query(ctx,
		`SELECT guild_id, char_id, char_name, rank, notes
		 FROM guild_members ORDER BY guild_id, char_id`)
	if err != nil {
		return nil, nil, err
	}
	defer memberRows.Close()

	var members []GuildMemberRow
	for memberRows.Next() {
		var m GuildMemberRow
		if err := memberRows.Scan(&m.GuildID, &m.CharID, &m.CharName, &m.Rank, &m.Notes); err != nil {
			return nil, nil, err
		}
		members = append(members, m)
	}
	if err := memberRows.Err(); err != nil {
		return nil, nil, err
	}

	return guilds, members, nil
}

// CreateGuild inserts a new guild and its leader member row in a single
// transaction. The gold deduction itself happens in the in-memory
// container before this is called; the WAL records the deduction.
func (r *GuildRepo) CreateGuild(ctx context.Context, leaderCharID int32, leaderName, guildName string) (int32, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var guildID int32
	if err := tx.QueryRow(ctx,
		`INSERT INTO guilds (name, leader_id) VALUES ($1, $2) RETURNING id`,
		guildName, leaderCharID,
	).Scan(&guildID); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO guild_members (guild_id, char_id, char_name, rank)
		 VALUES ($1, $2, $3, $4)`,
		guildID, leaderCharID, leaderName, int16(model.GuildRankLeader)); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE characters SET guild_id = $1, guild_rank = $2 WHERE id = $3`,
		guildID, int16(model.GuildRankLeader), leaderCharID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return guildID, nil
}

func (r *GuildRepo) AddMember(ctx context.Context, guildID int32, charID int32, charName string, rank int16) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO guild_members (guild_id, char_id, char_name, rank) VALUES ($1, $2, $3, $4)`,
		guildID, charID, charName, rank); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE characters SET guild_id = $1, guild_rank = $2 WHERE id = $3`,
		guildID, rank, charID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *GuildRepo) RemoveMember(ctx context.Context, guildID, charID int32) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM guild_members WHERE guild_id = $1 AND char_id = $2`, guildID, charID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE characters SET guild_id = 0, guild_rank = 0 WHERE id = $1`, charID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Dissolve removes a guild and all its members in a single transaction.
func (r *GuildRepo) Dissolve(ctx context.Context, guildID int32) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE characters SET guild_id = 0, guild_rank = 0
		 WHERE id IN (SELECT char_id FROM guild_members WHERE guild_id = $1)`, guildID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM guild_members WHERE guild_id = $1`, guildID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM guild_wars WHERE attacker_guild_id = $1 OR defender_guild_id = $1`, guildID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM guilds WHERE id = $1`, guildID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *GuildRepo) UpdateNotice(ctx context.Context, guildID int32, notice string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE guilds SET notice = $1 WHERE id = $2`, notice, guildID)
	return err
}

func (r *GuildRepo) UpdateMemberRank(ctx context.Context, guildID, charID int32, rank int16) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE guild_members SET rank = $1 WHERE guild_id = $2 AND char_id = $3`, rank, guildID, charID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE characters SET guild_rank = $1 WHERE id = $2`, rank, charID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveTreasury persists a guild's gold balance after a deposit/withdraw.
func (r *GuildRepo) SaveTreasury(ctx context.Context, guildID int32, treasury int64) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE guilds SET treasury = $1 WHERE id = $2`, treasury, guildID)
	return err
}

// RecordWar persists a declared/ended war entry (§3 supplemented guild-war
// scoring; original_source's GuildManager.h tracks sieges the base spec
// omits).
func (r *GuildRepo) RecordWar(ctx context.Context, w model.War) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO guild_wars (attacker_guild_id, defender_guild_id, state, attacker_score, defender_score, declared_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (attacker_guild_id, defender_guild_id, declared_at)
		 DO UPDATE SET state = $3, attacker_score = $4, defender_score = $5, ended_at = $7`,
		w.AttackerGuildID, w.DefenderGuildID, int16(w.State), w.AttackerScore, w.DefenderScore, w.DeclaredAt, w.EndedAt)
	return err
}

var ErrInsufficientGold = errors.New("insufficient gold")
