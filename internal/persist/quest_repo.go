package persist

import (
	"context"
	"encoding/json"

	"github.com/wydtm/tmsrv/internal/model"
)

type QuestRow struct {
	CharID            int32
	QuestID           int32
	State             int16
	AcceptTime        int64
	LastCompletedTime int64
	ObjectiveProgress []int32
	CompletionCount   int
}

type QuestRepo struct {
	db *DB
}

func NewQuestRepo(db *DB) *QuestRepo {
	return &QuestRepo{db: db}
}

func (r *QuestRepo) LoadByCharID(ctx context.Context, charID int32) ([]QuestRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT char_id, quest_id, state, accept_time, last_completed_time, objective_progress, completion_count
		 FROM character_quests WHERE char_id = $1`, charID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []QuestRow
	for rows.Next() {
		var q QuestRow
		var raw []byte
		if err := rows.Scan(&q.CharID, &q.QuestID, &q.State, &q.AcceptTime, &q.LastCompletedTime, &raw, &q.CompletionCount); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(raw, &q.ObjectiveProgress)
		result = append(result, q)
	}
	return result, rows.Err()
}

// Save upserts one quest instance's progress (§4.9 every objective-progress
// tick is a candidate save point; callers batch these on the periodic
// checkpoint rather than persisting per-kill).
func (r *QuestRepo) Save(ctx context.Context, qi *model.QuestInstance) error {
	progress, err := json.Marshal(qi.ObjectiveProgress)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO character_quests (char_id, quest_id, state, accept_time, last_completed_time, objective_progress, completion_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (char_id, quest_id) DO UPDATE SET
		   state = $3, accept_time = $4, last_completed_time = $5, objective_progress = $6, completion_count = $7`,
		qi.CharacterID, qi.QuestID, int16(qi.State), qi.AcceptTime, qi.LastCompletedTime, progress, qi.CompletionCount)
	return err
}

func (r *QuestRepo) Delete(ctx context.Context, charID, questID int32) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM character_quests WHERE char_id = $1 AND quest_id = $2`, charID, questID)
	return err
}
