package race

// EventType tags every server-to-client frame.
type EventType string

const (
	EventJoined             EventType = "joined"
	EventGameState          EventType = "gameState"
	EventPlayerJoined       EventType = "playerJoined"
	EventPlayerDisconnected EventType = "playerDisconnected"
	EventStartCountdown     EventType = "startCountdown"
	EventCountdown          EventType = "countdown"
	EventRaceStart          EventType = "raceStart"
	EventPositionUpdate     EventType = "positionUpdate"
	EventBatchPosition      EventType = "batchPositionUpdate"
	EventPlayerFinished     EventType = "playerFinished"
	EventRaceFinished       EventType = "raceFinished"
	EventResetRace          EventType = "resetRace"
)

// Event is a server-to-client frame. The concrete types below are the closed
// set of frames the protocol emits; the transport marshals them verbatim.
type Event interface{ isEvent() }

// PlayerSummary is the public view of a roster entry as embedded in
// playerJoined and gameState frames.
type PlayerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlayerNumber int    `json:"playerNumber"`
	Position     int    `json:"position"`
	Connected    bool   `json:"connected"`
	IsLeader     bool   `json:"isLeader"`
}

// Joined acknowledges a successful joinPlayer, unicast to the joiner.
type Joined struct {
	Type         EventType `json:"type"`
	PlayerID     string    `json:"playerId"`
	PlayerNumber int       `json:"playerNumber"`
	IsLeader     bool      `json:"isLeader"`
}

// GameState is the snapshot unicast to a newly joined display. Disconnected
// players are deliberately omitted.
type GameState struct {
	Type    EventType       `json:"type"`
	State   Phase           `json:"state"`
	Players []PlayerSummary `json:"players"`
}

// PlayerJoined is the roster delta broadcast to every other connection.
type PlayerJoined struct {
	Type   EventType     `json:"type"`
	Player PlayerSummary `json:"player"`
}

type PlayerDisconnected struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"playerId"`
}

type StartCountdown struct {
	Type EventType `json:"type"`
}

type Countdown struct {
	Type  EventType `json:"type"`
	Count int       `json:"count"`
}

type RaceStart struct {
	Type EventType `json:"type"`
}

// PositionUpdate is the unicast ack for an accepted position report.
// Controllers never trust a broadcast for their own state.
type PositionUpdate struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"playerId"`
	Position int       `json:"position"`
}

// PositionEntry is one buffered update awaiting the next batch flush.
type PositionEntry struct {
	PlayerID string `json:"playerId"`
	Position int    `json:"position"`
}

// BatchPositionUpdate carries the pending buffer verbatim to displays. The
// buffer is append-only: intra-window updates for the same player are not
// coalesced.
type BatchPositionUpdate struct {
	Type    EventType       `json:"type"`
	Updates []PositionEntry `json:"updates"`
}

// PlayerFinished announces a finisher. The finish rank travels in the
// "position" field: the original protocol reused the word and the clients key
// off it.
type PlayerFinished struct {
	Type       EventType `json:"type"`
	PlayerID   string    `json:"playerId"`
	TimeMs     int64     `json:"time"`
	FinishRank int       `json:"position"`
}

type RaceFinished struct {
	Type EventType `json:"type"`
}

// RaceReset is broadcast after a successful leader reset.
type RaceReset struct {
	Type EventType `json:"type"`
}

func (Joined) isEvent()              {}
func (GameState) isEvent()           {}
func (PlayerJoined) isEvent()        {}
func (PlayerDisconnected) isEvent()  {}
func (StartCountdown) isEvent()      {}
func (Countdown) isEvent()           {}
func (RaceStart) isEvent()           {}
func (PositionUpdate) isEvent()      {}
func (BatchPositionUpdate) isEvent() {}
func (PlayerFinished) isEvent()      {}
func (RaceFinished) isEvent()        {}
func (RaceReset) isEvent()           {}
