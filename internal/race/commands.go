package race

// Command is a message processed by the session loop. The set is closed: the
// gateway decodes every client frame into exactly one of the shapes below, so
// an unknown frame can never reach the session unnoticed.
type Command interface{ isCommand() }

// JoinDisplay announces a spectator screen. The transport has already tagged
// the connection as display-role; the session answers with a full game state
// snapshot.
type JoinDisplay struct {
	ConnID string
}

// JoinPlayer registers a new controller under the given display name.
type JoinPlayer struct {
	ConnID string
	Name   string
}

// StartRace is the leader's intent to begin the countdown.
type StartRace struct {
	ConnID string
}

// UpdatePosition reports a controller's current scroll distance. TimeMs is
// only present on the single frame with which the controller reports local
// completion; its absence means the player is still racing regardless of
// position.
type UpdatePosition struct {
	ConnID   string
	Position int
	TimeMs   *int64
}

// ResetRace is the leader's intent to return the session to WAITING.
type ResetRace struct {
	ConnID string
}

// Disconnected is emitted by the transport when a connection goes away.
type Disconnected struct {
	ConnID string
}

func (JoinDisplay) isCommand()    {}
func (JoinPlayer) isCommand()     {}
func (StartRace) isCommand()      {}
func (UpdatePosition) isCommand() {}
func (ResetRace) isCommand()      {}
func (Disconnected) isCommand()   {}
