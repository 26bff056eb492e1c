package notehandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notehubgo/internal/services/note"
)

type Handler struct {
	svc note.INoteService
}

func New(svc note.INoteService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/notes", h.list)
	r.POST("/notes", h.create)
	r.GET("/notes/:id", h.info)
	r.PUT("/notes/:id", h.update)
	r.DELETE("/notes/:id", h.remove)
	r.POST("/notes/:id/share", h.share)
	r.DELETE("/notes/:id/share/:userId", h.revoke)
}

func status(err error) int {
	switch {
	case errors.Is(err, note.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, note.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// @Summary		List notes
// @Description	Retrieves a paginated list of notes owned by or shared with the caller.
// @Tags			Notes
// @Param			limit	query		int	false	"Max results (0-100)"	minimum(0)	maximum(100)	default(10)
// @Param			offset	query		int	false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		note.NoteDTO
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/notes [get]
func (h *Handler) list(c *gin.Context) {
	var q ListNotesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListNotes(c.Request.Context(), userID(c), q.Limit, q.Offset)
	if err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Create a note
// @Tags			Notes
// @Param			body	body		CreateNoteBody	true	"Note payload"
// @Success		201		{object}	note.NoteDTO
// @Failure		400		{object}	ErrorResponse
// @Router			/notes [post]
func (h *Handler) create(c *gin.Context) {
	var body CreateNoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	dto, err := h.svc.CreateNote(c.Request.Context(), userID(c), body.Title, body.Content)
	if err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// @Summary		Get note details
// @Tags			Notes
// @Param			id	path		string	true	"Note ID"
// @Success		200	{object}	note.NoteDTO
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/notes/{id} [get]
func (h *Handler) info(c *gin.Context) {
	dto, err := h.svc.GetNote(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// @Summary		Save a note (last write wins)
// @Description	Full-content save. Concurrent editors converge here, not in the live relay.
// @Tags			Notes
// @Param			id		path		string			true	"Note ID"
// @Param			body	body		UpdateNoteBody	true	"Note payload"
// @Success		200		{object}	note.NoteDTO
// @Failure		403		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Router			/notes/{id} [put]
func (h *Handler) update(c *gin.Context) {
	var body UpdateNoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	dto, err := h.svc.UpdateNote(c.Request.Context(), c.Param("id"), userID(c), body.Title, body.Content)
	if err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// @Summary		Delete a note
// @Tags			Notes
// @Param			id	path	string	true	"Note ID"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/notes/{id} [delete]
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.DeleteNote(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary		Share a note
// @Tags			Notes
// @Param			id		path	string			true	"Note ID"
// @Param			body	body	ShareNoteBody	true	"Share payload"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/notes/{id}/share [post]
func (h *Handler) share(c *gin.Context) {
	var body ShareNoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.ShareNote(c.Request.Context(), c.Param("id"), userID(c), body.UserID, body.CanEdit); err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary		Revoke a share
// @Tags			Notes
// @Param			id		path	string	true	"Note ID"
// @Param			userId	path	string	true	"User ID"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/notes/{id}/share/{userId} [delete]
func (h *Handler) revoke(c *gin.Context) {
	if err := h.svc.RevokeShare(c.Request.Context(), c.Param("id"), userID(c), c.Param("userId")); err != nil {
		c.JSON(status(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
