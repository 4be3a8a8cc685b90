package race

// Player is a roster entry. A record persists for the whole session once
// created: a disconnect only flips Connected, and only a leader reset removes
// disconnected entries from the roster.
type Player struct {
	ID     string
	ConnID string
	Name   string

	// Number is 1-based, derived from the connected count at join time. It is
	// not unique across the roster's history: disconnect/rejoin churn can hand
	// the same number out twice. Client labels key off it, so it stays as-is.
	Number int

	Position  int
	Connected bool

	Finished     bool
	FinishRank   int
	FinishTimeMs int64
}
