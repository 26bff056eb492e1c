package note

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSvc(t *testing.T) (INoteService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNoteService(db), mock
}

func expectAccess(mock sqlmock.Sqlmock, owner string, canEdit bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT n.owner_id, coalesce(s.can_edit, false)")).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "can_edit"}).AddRow(owner, canEdit))
}

func TestCreateNote(t *testing.T) {
	svc, mock := newSvc(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notes")).
		WithArgs(sqlmock.AnyArg(), "alice", "Title", "Body").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	dto, err := svc.CreateNote(context.Background(), "alice", "Title", "Body")
	require.NoError(t, err)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "alice", dto.OwnerID)
	assert.Equal(t, now, dto.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNoteOwner(t *testing.T) {
	svc, mock := newSvc(t)

	expectAccess(mock, "alice", false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, content, updated_at")).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "content", "updated_at"}).
			AddRow("n1", "alice", "Title", "Body", time.Now()))

	dto, err := svc.GetNote(context.Background(), "n1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "n1", dto.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNoteSharedReader(t *testing.T) {
	svc, mock := newSvc(t)

	expectAccess(mock, "alice", false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("n1", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, content, updated_at")).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "content", "updated_at"}).
			AddRow("n1", "alice", "Title", "Body", time.Now()))

	_, err := svc.GetNote(context.Background(), "n1", "bob")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNoteStrangerForbidden(t *testing.T) {
	svc, mock := newSvc(t)

	expectAccess(mock, "alice", false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("n1", "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.GetNote(context.Background(), "n1", "mallory")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetNoteMissing(t *testing.T) {
	svc, mock := newSvc(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT n.owner_id, coalesce(s.can_edit, false)")).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "can_edit"}))

	_, err := svc.GetNote(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestUpdateNoteReadOnlyShareForbidden(t *testing.T) {
	svc, mock := newSvc(t)

	expectAccess(mock, "alice", false)

	_, err := svc.UpdateNote(context.Background(), "n1", "bob", "T", "C")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateNoteEditorLastWriteWins(t *testing.T) {
	svc, mock := newSvc(t)

	expectAccess(mock, "alice", true)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notes SET title = $2, content = $3, updated_at = now()")).
		WithArgs("n1", "T2", "C2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "content", "updated_at"}).
			AddRow("n1", "alice", "T2", "C2", time.Now()))

	dto, err := svc.UpdateNote(context.Background(), "n1", "bob", "T2", "C2")
	require.NoError(t, err)
	assert.Equal(t, "C2", dto.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNoteNonOwnerForbidden(t *testing.T) {
	svc, mock := newSvc(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM notes WHERE id = $1")).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("alice"))

	err := svc.DeleteNote(context.Background(), "n1", "bob")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestShareNoteUpsert(t *testing.T) {
	svc, mock := newSvc(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM notes WHERE id = $1")).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("alice"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO note_shares")).
		WithArgs("n1", "bob", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.ShareNote(context.Background(), "n1", "alice", "bob", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotes(t *testing.T) {
	svc, mock := newSvc(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notes n")).
		WithArgs("alice", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "content", "updated_at"}).
			AddRow("n1", "alice", "A", "", time.Now()).
			AddRow("n2", "bob", "B", "", time.Now()))

	out, err := svc.ListNotes(context.Background(), "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
