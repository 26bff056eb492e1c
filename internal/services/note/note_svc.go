package note

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type NoteDTO struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at" example:"2026-08-23T16:05:05Z"`
}

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrForbidden    = errors.New("not allowed")
)

type INoteService interface {
	CreateNote(ctx context.Context, ownerID, title, content string) (*NoteDTO, error)
	GetNote(ctx context.Context, id, userID string) (*NoteDTO, error)
	ListNotes(ctx context.Context, userID string, limit, offset int) ([]NoteDTO, error)
	UpdateNote(ctx context.Context, id, userID, title, content string) (*NoteDTO, error)
	DeleteNote(ctx context.Context, id, userID string) error
	ShareNote(ctx context.Context, noteID, ownerID, targetUserID string, canEdit bool) error
	RevokeShare(ctx context.Context, noteID, ownerID, targetUserID string) error
}

type noteService struct {
	db *sql.DB
}

func NewNoteService(db *sql.DB) INoteService {
	return &noteService{db: db}
}

func (svc *noteService) CreateNote(ctx context.Context, ownerID, title, content string) (*NoteDTO, error) {
	dto := &NoteDTO{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Title:   title,
		Content: content,
	}
	const q = `INSERT INTO notes (id, owner_id, title, content, updated_at)
	           VALUES ($1, $2, $3, $4, now())
	           RETURNING updated_at`
	if err := svc.db.QueryRowContext(ctx, q,
		dto.ID, dto.OwnerID, dto.Title, dto.Content).Scan(&dto.UpdatedAt); err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *noteService) GetNote(ctx context.Context, id, userID string) (*NoteDTO, error) {
	if _, err := svc.access(ctx, id, userID, false); err != nil {
		return nil, err
	}

	const q = `SELECT id, owner_id, title, content, updated_at
	             FROM notes WHERE id = $1`
	dto := &NoteDTO{}
	err := svc.db.QueryRowContext(ctx, q, id).
		Scan(&dto.ID, &dto.OwnerID, &dto.Title, &dto.Content, &dto.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *noteService) ListNotes(ctx context.Context, userID string, limit, offset int) ([]NoteDTO, error) {
	if limit == 0 {
		limit = 10
	}

	// Owned notes plus notes shared with the user, newest first.
	const q = `SELECT n.id, n.owner_id, n.title, n.content, n.updated_at
	             FROM notes n
	        LEFT JOIN note_shares s ON s.note_id = n.id AND s.user_id = $1
	            WHERE n.owner_id = $1 OR s.user_id IS NOT NULL
	         ORDER BY n.updated_at DESC
	            LIMIT $2 OFFSET $3`
	rows, err := svc.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]NoteDTO, 0, limit)
	for rows.Next() {
		var n NoteDTO
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// UpdateNote is the save-time source of truth for collaborative edits:
// last write wins, no merging. The live relay layer never persists deltas.
func (svc *noteService) UpdateNote(ctx context.Context, id, userID, title, content string) (*NoteDTO, error) {
	if _, err := svc.access(ctx, id, userID, true); err != nil {
		return nil, err
	}

	const q = `UPDATE notes SET title = $2, content = $3, updated_at = now()
	            WHERE id = $1
	        RETURNING id, owner_id, title, content, updated_at`
	dto := &NoteDTO{}
	err := svc.db.QueryRowContext(ctx, q, id, title, content).
		Scan(&dto.ID, &dto.OwnerID, &dto.Title, &dto.Content, &dto.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *noteService) DeleteNote(ctx context.Context, id, userID string) error {
	owner, err := svc.ownerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}

	_, err = svc.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}

func (svc *noteService) ShareNote(ctx context.Context, noteID, ownerID, targetUserID string, canEdit bool) error {
	owner, err := svc.ownerOf(ctx, noteID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	const q = `INSERT INTO note_shares (note_id, user_id, can_edit)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (note_id, user_id) DO UPDATE SET can_edit = EXCLUDED.can_edit`
	_, err = svc.db.ExecContext(ctx, q, noteID, targetUserID, canEdit)
	return err
}

func (svc *noteService) RevokeShare(ctx context.Context, noteID, ownerID, targetUserID string) error {
	owner, err := svc.ownerOf(ctx, noteID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	_, err = svc.db.ExecContext(ctx,
		`DELETE FROM note_shares WHERE note_id = $1 AND user_id = $2`, noteID, targetUserID)
	return err
}

// helpers

func (svc *noteService) ownerOf(ctx context.Context, noteID string) (string, error) {
	var owner string
	err := svc.db.QueryRowContext(ctx,
		`SELECT owner_id FROM notes WHERE id = $1`, noteID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoteNotFound
	}
	return owner, err
}

// access resolves the caller's rights on a note: owners get everything,
// shared users get read and, with can_edit, write.
func (svc *noteService) access(ctx context.Context, noteID, userID string, needWrite bool) (bool, error) {
	const q = `SELECT n.owner_id, coalesce(s.can_edit, false)
	             FROM notes n
	        LEFT JOIN note_shares s ON s.note_id = n.id AND s.user_id = $2
	            WHERE n.id = $1`
	var owner string
	var canEdit bool
	err := svc.db.QueryRowContext(ctx, q, noteID, userID).Scan(&owner, &canEdit)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNoteNotFound
	}
	if err != nil {
		return false, err
	}

	if owner == userID {
		return true, nil
	}
	if !canEdit && needWrite {
		return false, ErrForbidden
	}
	if !canEdit && owner != userID {
		// Not owner: readable only when a share row exists. The LEFT JOIN
		// cannot distinguish "no share" from "share without edit", so check.
		var shared bool
		err := svc.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM note_shares WHERE note_id = $1 AND user_id = $2)`,
			noteID, userID).Scan(&shared)
		if err != nil {
			return false, err
		}
		if !shared {
			return false, ErrForbidden
		}
	}
	return canEdit, nil
}
