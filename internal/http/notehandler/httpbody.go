package notehandler

type CreateNoteBody struct {
	Title   string `json:"title"   binding:"required,max=200" example:"Meeting notes"`
	Content string `json:"content" binding:"omitempty"        example:"# Agenda"`
} // @name CreateNoteRequest

type UpdateNoteBody struct {
	Title   string `json:"title"   binding:"required,max=200"`
	Content string `json:"content"`
} // @name UpdateNoteRequest

type ShareNoteBody struct {
	UserID  string `json:"user_id" binding:"required" example:"user123"`
	CanEdit bool   `json:"can_edit"`
} // @name ShareNoteRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type ListNotesQuery struct {
	Limit  int `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int `form:"offset,default=0"  binding:"gte=0"`
} // @name ListNotesQuery
