package editlog

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderAppendsToStream(t *testing.T) {
	rdc, mock := redismock.NewClientMock()

	// The "at" field is wall-clock; match on everything else. The mock
	// compares argument counts before running the custom matcher, so the
	// expectation must carry the same value keys as the real XAdd.
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectXAdd(&redis.XAddArgs{Stream: stream, Values: map[string]any{
			"doc": "doc1", "user": "alice", "kind": "content.delta", "at": "",
		}}).
		SetVal("1-0")

	NewRecorder(rdc).Record(context.Background(), "doc1", "alice", "content.delta")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistWritesBatchInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"doc": "doc1", "user": "alice", "kind": "content.delta", "at": "1700000000"}},
		{ID: "1-1", Values: map[string]any{"doc": "doc1", "user": "bob", "kind": "content.delta", "at": "1700000001"}},
	}

	mock.ExpectBegin()
	ins := regexp.QuoteMeta("INSERT INTO note_edits (stream_id, note_id, user_id, kind, occurred_at)")
	mock.ExpectExec(ins).WithArgs("1-0", "doc1", "alice", "content.delta", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(ins).WithArgs("1-1", "doc1", "bob", "content.delta", int64(1700000001)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistReplayedEntriesAreIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"doc": "doc1", "user": "alice", "kind": "content.delta", "at": "1700000000"}},
	}

	// A restarted reader tails the stream from scratch, so the same entry
	// comes through twice; the conflict guard on stream_id must swallow
	// the replay instead of growing the audit table.
	ins := regexp.QuoteMeta("ON CONFLICT (stream_id) DO NOTHING")
	mock.ExpectBegin()
	mock.ExpectExec(ins).WithArgs("1-0", "doc1", "alice", "content.delta", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(ins).WithArgs("1-0", "doc1", "alice", "content.delta", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 0)) // conflict: no row written
	mock.ExpectCommit()

	require.NoError(t, persist(context.Background(), db, msgs))
	require.NoError(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"doc": "doc1", "user": "alice", "kind": "content.delta", "at": "1700000000"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO note_edits")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.Error(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}
