package editlog

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stream = "note_edits_stream"

// Recorder appends edit-audit entries to the Redis stream. Best effort:
// the collaboration relay never waits on, or fails because of, the audit
// trail.
type Recorder struct {
	rdc *redis.Client
}

func NewRecorder(rdc *redis.Client) *Recorder { return &Recorder{rdc: rdc} }

func (r *Recorder) Record(ctx context.Context, documentID, userID, kind string) {
	err := r.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"doc":  documentID,
			"user": userID,
			"kind": kind,
			"at":   strconv.FormatInt(time.Now().Unix(), 10),
		},
	}).Err()
	if err != nil {
		zap.L().Warn("editlog.xadd", zap.Error(err))
	}
}

// Run tails the stream and persists every audit entry.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Warn("editlog.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Warn("editlog.persist", zap.Error(err))
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// The reader restarts from 0-0, so entries are replayed after every
	// process restart; the stream id makes the insert idempotent.
	const ins = `INSERT INTO note_edits (stream_id, note_id, user_id, kind, occurred_at)
	             VALUES ($1, $2, $3, $4, to_timestamp($5))
	             ON CONFLICT (stream_id) DO NOTHING`
	for _, m := range msgs {
		doc, _ := m.Values["doc"].(string)
		user, _ := m.Values["user"].(string)
		kind, _ := m.Values["kind"].(string)
		at, _ := m.Values["at"].(string)

		ts, _ := strconv.ParseInt(at, 10, 64)
		if _, err := tx.ExecContext(ctx, ins, m.ID, doc, user, kind, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
