package main

import (
	"fmt"
	"log"
	"time"
)

// Start triggers the lobby -> night transition: roles are assigned, the
// night action window opens and the night timer is armed. Host only.
func (m *RoomManager) Start(roomID string, playerID int64) error {
	r, ok := m.getRoom(roomID)
	if !ok {
		m.sendErrorEvent(playerID, roomID, "Unknown room")
		return errUnknownRoom
	}

	r.mu.Lock()
	if playerID != r.hostID {
		r.mu.Unlock()
		m.sendErrorEvent(playerID, roomID, "Only the host can start the game")
		return errNotHost
	}
	if r.phase != PhaseLobby {
		r.mu.Unlock()
		m.sendErrorEvent(playerID, roomID, "Game already started")
		return errAlreadyStarted
	}
	if len(r.players) < 4 {
		r.mu.Unlock()
		m.sendErrorEvent(playerID, roomID, "At least 4 players are required to start")
		return errInsufficientPlayers
	}
	if err := assignRoles(r.players); err != nil {
		r.mu.Unlock()
		m.sendErrorEvent(playerID, roomID, "Failed to assign roles")
		return err
	}

	r.phase = PhaseNight
	r.day = 1
	m.armTimerLocked(r, m.cfg.nightDuration())
	r.history = append(r.history, fmt.Sprintf("The game began with %d players.", len(r.players)))

	// Each player learns their own role and nothing else.
	evs := make([]outgoing, 0, 2*len(r.players))
	for _, p := range r.players {
		evs = append(evs, outgoing{playerID: p.ID, ev: Event{Type: EventGameStart, Data: GameStartData{RoomID: r.id, Role: p.Role}}})
	}
	evs = append(evs, r.toAllLocked(Event{Type: EventPhaseChange, Data: PhaseChangeData{RoomID: r.id, Phase: PhaseNight, Day: r.day}})...)
	playerCount := len(r.players)
	r.mu.Unlock()

	log.Printf("Room %q started with %d players, night 1 begins", roomID, playerCount)
	DebugLog("Start", "Room %q: game started, transitioning to night", roomID)
	m.emit(evs)
	return nil
}

// End forces the ended state immediately: the timer is cancelled, pending
// actions and votes are discarded and the room is removed. Host only.
func (m *RoomManager) End(roomID string, playerID int64) error {
	r, ok := m.getRoom(roomID)
	if !ok {
		m.sendErrorEvent(playerID, roomID, "Unknown room")
		return errUnknownRoom
	}

	r.mu.Lock()
	if playerID != r.hostID {
		r.mu.Unlock()
		m.sendErrorEvent(playerID, roomID, "Only the host can end the game")
		return errNotHost
	}
	if r.phase == PhaseEnded {
		r.mu.Unlock()
		return nil
	}
	evs := m.endLocked(r, "")
	r.mu.Unlock()

	log.Printf("Room %q ended by host %d", roomID, playerID)
	m.emit(evs)
	m.removeRoom(roomID)
	return nil
}

// armTimerLocked cancels any pending timer and arms a new one for the
// current phase. The generation stamp makes a callback from a timer that was
// cancelled too late a detectable no-op. Caller holds r.mu.
func (m *RoomManager) armTimerLocked(r *Room, d time.Duration) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	expect := r.phase
	r.timer = time.AfterFunc(d, func() {
		m.phaseExpired(r, gen, expect)
	})
}

// cancelTimerLocked stops the pending timer without arming a new one. Only
// endLocked uses it; every other transition re-arms. Caller holds r.mu.
func (m *RoomManager) cancelTimerLocked(r *Room) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

// phaseExpired is the single timer callback. It advances the room out of the
// phase the timer was armed for. A callback whose generation or phase no
// longer matches current reality is stale and must change nothing.
func (m *RoomManager) phaseExpired(r *Room, gen uint64, expect Phase) {
	r.mu.Lock()
	if gen != r.timerGen || r.phase != expect {
		r.mu.Unlock()
		DebugLog("phaseExpired", "Stale timer for room %q (gen %d, phase %q, expected %q)", r.id, gen, r.phase, expect)
		return
	}

	var evs []outgoing
	var ended, died bool
	switch r.phase {
	case PhaseNight:
		evs, ended, died = m.closeNightLocked(r)
	case PhaseDay:
		evs = m.openVoteLocked(r)
	case PhaseVote:
		evs, ended, died = m.closeVoteLocked(r)
	default:
		r.mu.Unlock()
		return
	}

	roomID := r.id
	members := r.memberIDsLocked()
	history := append([]string(nil), r.history...)
	r.mu.Unlock()

	m.emit(evs)
	if ended {
		m.removeRoom(roomID)
	}
	if died {
		m.narrate(roomID, members, history)
	}
}

// closeNightLocked resolves the night action window: applies the death (if
// any), hands investigation results privately to the sheriff, re-checks the
// win condition and opens the day. Caller holds r.mu.
func (m *RoomManager) closeNightLocked(r *Room) (evs []outgoing, ended, died bool) {
	result := resolveNight(r.actions, r.players)
	r.actions = make(map[int64]pendingAction)
	r.actionSeq = 0

	nr := NightResultData{RoomID: r.id, Day: r.day}
	if result.VictimID != 0 {
		victim := r.playerByID(result.VictimID)
		if victim != nil && victim.Alive {
			victim.Alive = false
			nr.Victim = m.deadPlayer(victim)
			r.history = append(r.history, fmt.Sprintf("Night %d: %s was found dead at dawn.", r.day, victim.Username))
			died = true
			log.Printf("Room %q night %d: player %d (%s) was killed", r.id, r.day, victim.ID, victim.Username)
		}
	} else if result.Saved {
		r.history = append(r.history, fmt.Sprintf("Night %d: the mafia struck, but their victim survived.", r.day))
		log.Printf("Room %q night %d: doctor saved the mafia's target", r.id, r.day)
	} else {
		r.history = append(r.history, fmt.Sprintf("Night %d passed without a death.", r.day))
	}

	evs = r.toAllLocked(Event{Type: EventNightResult, Data: nr})
	for _, inv := range result.Investigations {
		evs = append(evs, outgoing{playerID: inv.SheriffID, ev: Event{
			Type: EventInvestigation,
			Data: InvestigationData{RoomID: r.id, Day: r.day, TargetID: inv.TargetID, IsMafia: inv.IsMafia},
		}})
	}

	if winner := evaluateWinner(r.players); winner != "" {
		evs = append(evs, m.endLocked(r, winner)...)
		return evs, true, died
	}

	// Open the discussion window, or go straight to the vote when the
	// discussion duration is configured to zero.
	if m.cfg.DiscussionSeconds > 0 {
		r.phase = PhaseDay
		m.armTimerLocked(r, m.cfg.discussionDuration())
	} else {
		r.phase = PhaseVote
		m.armTimerLocked(r, m.cfg.voteDuration())
	}
	evs = append(evs, r.toAllLocked(Event{Type: EventPhaseChange, Data: PhaseChangeData{RoomID: r.id, Phase: r.phase, Day: r.day}})...)
	return evs, false, died
}

// openVoteLocked closes the discussion window and opens the vote window.
// Caller holds r.mu.
func (m *RoomManager) openVoteLocked(r *Room) []outgoing {
	r.phase = PhaseVote
	m.armTimerLocked(r, m.cfg.voteDuration())
	log.Printf("Room %q day %d: vote window open", r.id, r.day)
	return r.toAllLocked(Event{Type: EventPhaseChange, Data: PhaseChangeData{RoomID: r.id, Phase: PhaseVote, Day: r.day}})
}

// closeVoteLocked tallies the vote window, applies the elimination (if any),
// re-checks the win condition, then increments the day counter and re-arms
// the night timer. Caller holds r.mu.
func (m *RoomManager) closeVoteLocked(r *Room) (evs []outgoing, ended, died bool) {
	eliminatedID := tallyVotes(r.votes, r.players)
	r.votes = make(map[int64]int64)

	vr := VoteResultData{RoomID: r.id, Day: r.day}
	if eliminatedID != 0 {
		eliminated := r.playerByID(eliminatedID)
		if eliminated != nil && eliminated.Alive {
			eliminated.Alive = false
			vr.Eliminated = m.deadPlayer(eliminated)
			r.history = append(r.history, fmt.Sprintf("Day %d: the town voted to eliminate %s.", r.day, eliminated.Username))
			died = true
			log.Printf("Room %q day %d: player %d (%s) was voted out", r.id, r.day, eliminated.ID, eliminated.Username)
		}
	} else {
		r.history = append(r.history, fmt.Sprintf("Day %d: the vote ended without an elimination.", r.day))
		log.Printf("Room %q day %d: no elimination (tie or no votes)", r.id, r.day)
	}

	evs = r.toAllLocked(Event{Type: EventVoteResult, Data: vr})

	if winner := evaluateWinner(r.players); winner != "" {
		evs = append(evs, m.endLocked(r, winner)...)
		return evs, true, died
	}

	r.day++
	r.phase = PhaseNight
	m.armTimerLocked(r, m.cfg.nightDuration())
	evs = append(evs, r.toAllLocked(Event{Type: EventPhaseChange, Data: PhaseChangeData{RoomID: r.id, Phase: PhaseNight, Day: r.day}})...)
	return evs, false, died
}

// endLocked transitions the room to ended: cancels the timer, discards
// pending submissions and builds the game_ended events. The caller removes
// the room from the registry after releasing the lock. Caller holds r.mu.
func (m *RoomManager) endLocked(r *Room, winner string) []outgoing {
	m.cancelTimerLocked(r)
	r.phase = PhaseEnded
	r.winner = winner
	r.actions = make(map[int64]pendingAction)
	r.votes = make(map[int64]int64)

	data := GameEndedData{RoomID: r.id, Winner: winner}
	if m.cfg.RevealRoles {
		for _, p := range r.players {
			data.Roles = append(data.Roles, RoleReveal{ID: p.ID, Username: p.Username, Role: p.Role})
		}
	}

	log.Printf("Room %q ended, winner: %q", r.id, winner)
	DebugLog("endLocked", "Room %q finished, winner %q", r.id, winner)
	return r.toAllLocked(Event{Type: EventGameEnded, Data: data})
}

// deadPlayer builds the death announcement for a player. The faction is
// always revealed; the exact role only when configured.
func (m *RoomManager) deadPlayer(p *Player) *DeadPlayer {
	dp := &DeadPlayer{ID: p.ID, Username: p.Username, Faction: p.Role.faction()}
	if m.cfg.RevealRoles {
		dp.Role = p.Role
	}
	return dp
}

// evaluateWinner checks victory for either faction. Town wins when no mafia
// remain alive; mafia wins at parity or majority. The town check runs first,
// so a simultaneous wipe-out counts as a town win.
func evaluateWinner(players []*Player) string {
	var mafia, town int
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleMafia {
			mafia++
		} else {
			town++
		}
	}
	if mafia == 0 {
		return FactionTown
	}
	if mafia >= town {
		return FactionMafia
	}
	return ""
}
