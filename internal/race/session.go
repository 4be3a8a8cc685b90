package race

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// FinishLine is the scroll distance that completes the race. Controllers
// carry the same constant locally; the two values must stay in lockstep or
// the session never reaches FINISHED.
const FinishLine = 32000

const (
	countdownFrom     = 3
	countdownInterval = time.Second

	// batchInterval bounds display-bound message volume at 20 frames/s
	// regardless of how chatty controllers are.
	batchInterval = 50 * time.Millisecond
)

// Phase is the session's lifecycle state. Transitions only move forward
// along WAITING -> COUNTDOWN -> RACING -> FINISHED, plus the leader reset
// back to WAITING from any phase.
type Phase string

const (
	PhaseWaiting   Phase = "WAITING"
	PhaseCountdown Phase = "COUNTDOWN"
	PhaseRacing    Phase = "RACING"
	PhaseFinished  Phase = "FINISHED"
)

// Sender is what the session needs from the transport: best-effort delivery
// to one connection, to everyone, or to a subset. A send to a connection that
// is already gone is skipped per-recipient, never an error.
type Sender interface {
	SendTo(connID string, event Event)
	Broadcast(event Event)
	BroadcastExcept(connID string, event Event)
	BroadcastToDisplays(event Event)
}

// Session is the single race room. All state is owned by the Run goroutine;
// the only way in is Submit. Each command runs to completion before the next
// one is taken, so every broadcast reflects a fully applied state change.
type Session struct {
	inbox  chan Command
	done   chan struct{}
	sender Sender
	clock  clockwork.Clock

	phase    Phase
	players  []*Player
	leaderID string
	pending  []PositionEntry

	countdown     clockwork.Ticker
	countdownLeft int
}

// NewSession creates a session in WAITING. Pass clockwork.NewRealClock() in
// production; tests inject a fake clock to drive the countdown and batch
// tickers.
func NewSession(sender Sender, clock clockwork.Clock) *Session {
	return &Session{
		inbox:  make(chan Command, 64),
		done:   make(chan struct{}),
		sender: sender,
		clock:  clock,
		phase:  PhaseWaiting,
	}
}

// Submit queues a command for the session loop. It blocks if the inbox is
// full, preserving arrival order, and returns immediately once the session
// has shut down.
func (s *Session) Submit(cmd Command) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
	}
}

// Run processes commands and timers until ctx is cancelled. Everything that
// touches session state happens on this goroutine.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	batch := s.clock.NewTicker(batchInterval)
	defer batch.Stop()
	defer s.stopCountdown()

	log.Info().Msg("race session started")

	for {
		// The countdown channel is nil unless a countdown is active; a nil
		// channel never fires in the select below.
		var countdownC <-chan time.Time
		if s.countdown != nil {
			countdownC = s.countdown.Chan()
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("race session shutting down")
			return
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-countdownC:
			s.tickCountdown()
		case <-batch.Chan():
			s.flushPending()
		}
	}
}

func (s *Session) handle(cmd Command) {
	switch c := cmd.(type) {
	case JoinDisplay:
		s.handleJoinDisplay(c)
	case JoinPlayer:
		s.handleJoinPlayer(c)
	case StartRace:
		s.handleStartRace(c)
	case UpdatePosition:
		s.handleUpdatePosition(c)
	case ResetRace:
		s.handleResetRace(c)
	case Disconnected:
		s.handleDisconnected(c)
	}
}

func (s *Session) handleJoinDisplay(c JoinDisplay) {
	s.sender.SendTo(c.ConnID, GameState{
		Type:    EventGameState,
		State:   s.phase,
		Players: s.connectedSummaries(),
	})
	log.Info().Str("conn_id", c.ConnID).Msg("display joined")
}

func (s *Session) handleJoinPlayer(c JoinPlayer) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		log.Debug().Str("conn_id", c.ConnID).Msg("join with empty name ignored")
		return
	}

	p := &Player{
		ID:        uuid.New().String(),
		ConnID:    c.ConnID,
		Name:      name,
		Number:    s.countConnected() + 1,
		Connected: true,
	}
	s.players = append(s.players, p)

	// The first player to ever join owns the room. Leadership is never handed
	// off, even if the leader disconnects.
	if s.leaderID == "" {
		s.leaderID = p.ID
	}

	s.sender.SendTo(c.ConnID, Joined{
		Type:         EventJoined,
		PlayerID:     p.ID,
		PlayerNumber: p.Number,
		IsLeader:     p.ID == s.leaderID,
	})
	s.sender.BroadcastExcept(c.ConnID, PlayerJoined{
		Type:   EventPlayerJoined,
		Player: s.summary(p),
	})

	log.Info().
		Str("player_id", p.ID).
		Str("name", p.Name).
		Int("player_number", p.Number).
		Bool("is_leader", p.ID == s.leaderID).
		Msg("player joined")
}

func (s *Session) handleStartRace(c StartRace) {
	p := s.playerByConn(c.ConnID)
	if p == nil || p.ID != s.leaderID || s.phase != PhaseWaiting {
		log.Debug().Str("conn_id", c.ConnID).Str("phase", string(s.phase)).Msg("start intent ignored")
		return
	}

	s.phase = PhaseCountdown
	s.sender.Broadcast(StartCountdown{Type: EventStartCountdown})
	s.countdownLeft = countdownFrom
	s.countdown = s.clock.NewTicker(countdownInterval)

	log.Info().Str("player_id", p.ID).Msg("countdown started")
}

func (s *Session) tickCountdown() {
	if s.countdown == nil {
		return
	}

	s.sender.Broadcast(Countdown{Type: EventCountdown, Count: s.countdownLeft})
	s.countdownLeft--

	if s.countdownLeft < 0 {
		s.stopCountdown()
		s.phase = PhaseRacing
		s.sender.Broadcast(RaceStart{Type: EventRaceStart})
		log.Info().Msg("race started")
	}
}

func (s *Session) stopCountdown() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *Session) handleUpdatePosition(c UpdatePosition) {
	p := s.playerByConn(c.ConnID)
	if p == nil || s.phase != PhaseRacing {
		return
	}

	// Unconditional overwrite: monotonicity is a client convention the
	// server does not enforce.
	p.Position = c.Position

	s.sender.SendTo(c.ConnID, PositionUpdate{
		Type:     EventPositionUpdate,
		PlayerID: p.ID,
		Position: p.Position,
	})
	s.pending = append(s.pending, PositionEntry{PlayerID: p.ID, Position: p.Position})

	// A position at the line without an elapsed time is not a finish: the
	// controller reports the time exactly once, when it detects completion.
	if c.Position >= FinishLine && c.TimeMs != nil && !p.Finished {
		s.finish(p, *c.TimeMs)
	}
}

func (s *Session) finish(p *Player, timeMs int64) {
	rank := s.countFinished() + 1
	p.Finished = true
	p.FinishRank = rank
	p.FinishTimeMs = timeMs

	s.sender.Broadcast(PlayerFinished{
		Type:       EventPlayerFinished,
		PlayerID:   p.ID,
		TimeMs:     timeMs,
		FinishRank: rank,
	})
	log.Info().
		Str("player_id", p.ID).
		Int("rank", rank).
		Int64("time_ms", timeMs).
		Msg("player finished")

	if s.allConnectedFinished() {
		s.phase = PhaseFinished
		s.sender.Broadcast(RaceFinished{Type: EventRaceFinished})
		log.Info().Msg("race finished")
	}
}

func (s *Session) handleResetRace(c ResetRace) {
	p := s.playerByConn(c.ConnID)
	if p == nil || p.ID != s.leaderID {
		log.Debug().Str("conn_id", c.ConnID).Msg("reset from non-leader ignored")
		return
	}

	s.stopCountdown()
	s.phase = PhaseWaiting

	remaining := make([]*Player, 0, len(s.players))
	for _, q := range s.players {
		if !q.Connected {
			continue
		}
		q.Position = 0
		q.Finished = false
		q.FinishRank = 0
		q.FinishTimeMs = 0
		remaining = append(remaining, q)
	}
	s.players = remaining
	s.pending = nil

	// Leadership is intentionally not recomputed here: the room keeps its
	// original host even across resets.
	s.sender.Broadcast(RaceReset{Type: EventResetRace})

	log.Info().Int("players", len(s.players)).Msg("race reset")
}

func (s *Session) handleDisconnected(c Disconnected) {
	p := s.playerByConn(c.ConnID)
	if p == nil || !p.Connected {
		return
	}

	p.Connected = false
	s.sender.Broadcast(PlayerDisconnected{Type: EventPlayerDisconnected, PlayerID: p.ID})

	log.Info().Str("player_id", p.ID).Str("name", p.Name).Msg("player disconnected")
}

// flushPending drains the batch buffer to displays. Outside RACING the tick
// is a no-op, so a buffer left over from a race that just ended is never
// delivered.
func (s *Session) flushPending() {
	if s.phase != PhaseRacing || len(s.pending) == 0 {
		return
	}
	s.sender.BroadcastToDisplays(BatchPositionUpdate{Type: EventBatchPosition, Updates: s.pending})
	s.pending = nil
}

func (s *Session) playerByConn(connID string) *Player {
	for _, p := range s.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (s *Session) countConnected() int {
	n := 0
	for _, p := range s.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (s *Session) countFinished() int {
	n := 0
	for _, p := range s.players {
		if p.Connected && p.Finished {
			n++
		}
	}
	return n
}

// allConnectedFinished reports whether a non-empty set of connected players
// has fully finished. Disconnected players are excluded, so a mid-race
// dropout never blocks completion.
func (s *Session) allConnectedFinished() bool {
	n := 0
	for _, p := range s.players {
		if !p.Connected {
			continue
		}
		if !p.Finished {
			return false
		}
		n++
	}
	return n > 0
}

func (s *Session) connectedSummaries() []PlayerSummary {
	out := make([]PlayerSummary, 0, len(s.players))
	for _, p := range s.players {
		if !p.Connected {
			continue
		}
		out = append(out, s.summary(p))
	}
	return out
}

func (s *Session) summary(p *Player) PlayerSummary {
	return PlayerSummary{
		ID:           p.ID,
		Name:         p.Name,
		PlayerNumber: p.Number,
		Position:     p.Position,
		Connected:    p.Connected,
		IsLeader:     p.ID == s.leaderID,
	}
}
