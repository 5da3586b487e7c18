package main

// Event is the JSON envelope delivered to clients over the transport.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event types produced toward the transport and bot collaborators.
const (
	EventRoster        = "roster"
	EventGameStart     = "game_start"
	EventPhaseChange   = "phase_change"
	EventNightResult   = "night_result"
	EventInvestigation = "investigation"
	EventVoteResult    = "vote_result"
	EventGameEnded     = "game_ended"
	EventActionAck     = "action_ack"
	EventVoteAck       = "vote_ack"
	EventStory         = "story"
	EventError         = "error"
)

// eventSink delivers an event to one connected player. The websocket hub is
// the production implementation; tests use a recording sink.
type eventSink interface {
	toPlayer(playerID int64, ev Event)
}

// outgoing pairs an event with its recipient. Transition code builds these
// under the room lock and the manager emits them after releasing it.
type outgoing struct {
	playerID int64
	ev       Event
}

type RosterPlayer struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Alive    bool   `json:"alive"`
}

type RosterData struct {
	RoomID  string         `json:"room_id"`
	HostID  int64          `json:"host_id"`
	Players []RosterPlayer `json:"players"`
}

// GameStartData is sent privately to each player: nobody else sees the role.
type GameStartData struct {
	RoomID string `json:"room_id"`
	Role   Role   `json:"role"`
}

type PhaseChangeData struct {
	RoomID string `json:"room_id"`
	Phase  Phase  `json:"phase"`
	Day    int    `json:"day"`
}

// DeadPlayer describes a death announcement. Role is filled only when the
// room is configured to reveal roles; Faction is always present.
type DeadPlayer struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Faction  string `json:"faction"`
	Role     Role   `json:"role,omitempty"`
}

type NightResultData struct {
	RoomID string      `json:"room_id"`
	Day    int         `json:"day"`
	Victim *DeadPlayer `json:"victim,omitempty"`
}

// InvestigationData is delivered only to the sheriff who asked.
type InvestigationData struct {
	RoomID   string `json:"room_id"`
	Day      int    `json:"day"`
	TargetID int64  `json:"target_id"`
	IsMafia  bool   `json:"is_mafia"`
}

type VoteResultData struct {
	RoomID     string      `json:"room_id"`
	Day        int         `json:"day"`
	Eliminated *DeadPlayer `json:"eliminated,omitempty"`
}

type RoleReveal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// GameEndedData carries the winner ("mafia" or "town", empty when the host
// ended the game early) and, when configured, the full role reveal.
type GameEndedData struct {
	RoomID string       `json:"room_id"`
	Winner string       `json:"winner,omitempty"`
	Roles  []RoleReveal `json:"roles,omitempty"`
}

type StoryData struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
}

type ErrorData struct {
	RoomID  string `json:"room_id,omitempty"`
	Message string `json:"message"`
}

type AckData struct {
	RoomID   string `json:"room_id"`
	TargetID int64  `json:"target_id"`
}

func (m *RoomManager) emit(evs []outgoing) {
	for _, e := range evs {
		m.sink.toPlayer(e.playerID, e.ev)
	}
}

// sendErrorEvent reports a per-intent failure back to the originating actor
// only. Validation failures are never broadcast and never fatal to the room.
func (m *RoomManager) sendErrorEvent(playerID int64, roomID, message string) {
	m.sink.toPlayer(playerID, Event{Type: EventError, Data: ErrorData{RoomID: roomID, Message: message}})
}
