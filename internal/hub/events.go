package hub

// Wire event names shared by the hub and its transport adapters.
const (
	EvtAuthenticated = "authenticated"
	EvtRoomSnapshot  = "room.snapshot"
	EvtMemberJoined  = "member.joined"
	EvtMemberLeft    = "member.left"

	EvtContentDelta = "content.delta"
	EvtCursorMove   = "cursor.move"
	EvtSelectionSet = "selection.set"
	EvtTyping       = "typing"
)

// Member is one entry of a room's presence roster.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// palette is the fixed set of presence colors. Assignment is round-robin;
// collisions inside one room are acceptable (rosters disambiguate by userId).
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}
