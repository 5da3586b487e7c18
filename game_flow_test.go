package main

import "testing"

func TestEvaluateWinner(t *testing.T) {
	tests := []struct {
		name  string
		setup func() []*Player
		want  string
	}{
		{
			name: "game continues",
			setup: func() []*Player {
				return makePlayers(RoleMafia, RoleMafia, RoleDoctor, RoleSheriff, RoleCivilian)
			},
			want: "",
		},
		{
			name: "town wins when no mafia remain",
			setup: func() []*Player {
				players := makePlayers(RoleMafia, RoleMafia, RoleDoctor, RoleSheriff, RoleCivilian)
				players[0].Alive = false
				players[1].Alive = false
				return players
			},
			want: FactionTown,
		},
		{
			name: "mafia wins at parity",
			setup: func() []*Player {
				players := makePlayers(RoleMafia, RoleMafia, RoleDoctor, RoleSheriff, RoleCivilian)
				players[2].Alive = false
				players[3].Alive = false
				players[4].Alive = false // 2 mafia vs 0 town would be a win too; make it 2v2
				players = append(players, &Player{ID: 6, Role: RoleCivilian, Alive: true})
				players = append(players, &Player{ID: 7, Role: RoleCivilian, Alive: true})
				return players
			},
			want: FactionMafia,
		},
		{
			name: "mafia wins with majority",
			setup: func() []*Player {
				players := makePlayers(RoleMafia, RoleMafia, RoleDoctor, RoleSheriff, RoleCivilian)
				players[2].Alive = false
				players[3].Alive = false
				players[4].Alive = false
				return players
			},
			want: FactionMafia,
		},
		{
			name: "everyone dead counts as town win",
			setup: func() []*Player {
				players := makePlayers(RoleMafia, RoleMafia, RoleDoctor, RoleSheriff, RoleCivilian)
				for _, p := range players {
					p.Alive = false
				}
				return players
			},
			want: FactionTown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluateWinner(tt.setup()); got != tt.want {
				t.Errorf("evaluateWinner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartValidation(t *testing.T) {
	m, _ := newTestManager(testConfig())
	joinPlayers(t, m, "room1", 3)

	if err := m.Start("room1", 1); err != errInsufficientPlayers {
		t.Errorf("start with 3 players: got %v, want errInsufficientPlayers", err)
	}
	if phase := roomPhase(t, m, "room1"); phase != PhaseLobby {
		t.Errorf("phase after failed start = %q, want lobby", phase)
	}

	if err := m.Join("room1", 4, "player4"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := m.Start("room1", 2); err != errNotHost {
		t.Errorf("start by non-host: got %v, want errNotHost", err)
	}
	if err := m.Start("nosuchroom", 1); err != errUnknownRoom {
		t.Errorf("start unknown room: got %v, want errUnknownRoom", err)
	}

	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("valid start: %v", err)
	}
	if err := m.Start("room1", 1); err != errAlreadyStarted {
		t.Errorf("double start: got %v, want errAlreadyStarted", err)
	}
}

func TestStartAssignsRolesAndNotifies(t *testing.T) {
	m, sink := newTestManager(testConfig())
	joinPlayers(t, m, "room1", 4)

	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for id := int64(1); id <= 4; id++ {
		ev, ok := sink.lastOfType(id, EventGameStart)
		if !ok {
			t.Fatalf("player %d got no game_start event", id)
		}
		data := ev.Data.(GameStartData)
		if data.Role == RoleUnassigned {
			t.Errorf("player %d received an unassigned role", id)
		}

		pc, ok := sink.lastOfType(id, EventPhaseChange)
		if !ok {
			t.Fatalf("player %d got no phase_change event", id)
		}
		pcd := pc.Data.(PhaseChangeData)
		if pcd.Phase != PhaseNight || pcd.Day != 1 {
			t.Errorf("phase_change = %+v, want night day 1", pcd)
		}
	}
}

func TestEndIsHostOnlyAndRemovesRoom(t *testing.T) {
	m, sink := newTestManager(testConfig())
	joinPlayers(t, m, "room1", 4)
	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.End("room1", 2); err != errNotHost {
		t.Errorf("end by non-host: got %v, want errNotHost", err)
	}
	if err := m.End("room1", 1); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, ok := m.getRoom("room1"); ok {
		t.Error("room still registered after End")
	}
	ev, ok := sink.lastOfType(2, EventGameEnded)
	if !ok {
		t.Fatal("no game_ended event sent")
	}
	if data := ev.Data.(GameEndedData); data.Winner != "" {
		t.Errorf("host-ended game has winner %q, want none", data.Winner)
	}
}

// A timer callback that lost the race against a newer transition (or the end
// of the game) must not change anything.
func TestStaleTimerIsNoOp(t *testing.T) {
	m, sink := newTestManager(testConfig())
	joinPlayers(t, m, "room1", 5)
	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r, _ := m.getRoom("room1")
	r.mu.Lock()
	staleGen := r.timerGen
	r.mu.Unlock()

	// Advance night -> day; the night timer's generation is now stale.
	fireTimer(t, m, "room1")
	before := sink.totalEvents()

	m.phaseExpired(r, staleGen, PhaseNight)

	if after := sink.totalEvents(); after != before {
		t.Errorf("stale callback emitted %d events", after-before)
	}
	if phase := roomPhase(t, m, "room1"); phase != PhaseDay {
		t.Errorf("phase = %q, want day (unchanged by stale callback)", phase)
	}

	// Same protection after the game ends, when the room is gone from the
	// registry but the callback still holds the pointer.
	r.mu.Lock()
	gen := r.timerGen
	phase := r.phase
	r.mu.Unlock()
	if err := m.End("room1", 1); err != nil {
		t.Fatalf("End: %v", err)
	}
	before = sink.totalEvents()
	m.phaseExpired(r, gen, phase)
	if after := sink.totalEvents(); after != before {
		t.Errorf("post-end stale callback emitted %d events", after-before)
	}
}

// Full scripted game: seven players, two nights, two votes, town victory.
func TestFullGameTownWins(t *testing.T) {
	m, sink := newTestManager(testConfig())
	joinPlayers(t, m, "room1", 7)
	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	setRoles(t, m, "room1", map[int64]Role{
		1: RoleMafia, 2: RoleMafia, 3: RoleDoctor, 4: RoleSheriff,
		5: RoleCivilian, 6: RoleCivilian, 7: RoleCivilian,
	})

	// Night 1: mafia agree on player 5, doctor protects player 6 (wrong
	// guess), sheriff checks player 1.
	for actor, target := range map[int64]int64{1: 5, 2: 5} {
		if err := m.SubmitAction("room1", actor, ActionKill, target); err != nil {
			t.Fatalf("kill by %d: %v", actor, err)
		}
	}
	if err := m.SubmitAction("room1", 3, ActionHeal, 6); err != nil {
		t.Fatalf("heal: %v", err)
	}
	if err := m.SubmitAction("room1", 4, ActionInvestigate, 1); err != nil {
		t.Fatalf("investigate: %v", err)
	}

	fireTimer(t, m, "room1")

	nr, ok := sink.lastOfType(7, EventNightResult)
	if !ok {
		t.Fatal("no night_result event")
	}
	nrd := nr.Data.(NightResultData)
	if nrd.Victim == nil || nrd.Victim.ID != 5 {
		t.Fatalf("night 1 victim = %+v, want player 5", nrd.Victim)
	}
	if nrd.Victim.Faction != FactionTown {
		t.Errorf("victim faction = %q, want town", nrd.Victim.Faction)
	}
	if nrd.Victim.Role != RoleUnassigned {
		t.Errorf("victim role revealed (%q) with reveal_roles off", nrd.Victim.Role)
	}

	inv, ok := sink.lastOfType(4, EventInvestigation)
	if !ok {
		t.Fatal("sheriff got no investigation result")
	}
	invd := inv.Data.(InvestigationData)
	if invd.TargetID != 1 || !invd.IsMafia {
		t.Errorf("investigation = %+v, want target 1 mafia", invd)
	}
	// Investigation results are private to the sheriff.
	for _, id := range []int64{1, 2, 3, 5, 6, 7} {
		if n := sink.countOfType(id, EventInvestigation); n != 0 {
			t.Errorf("player %d got %d investigation events", id, n)
		}
	}

	if m.IsLivingPlayer("room1", 5) {
		t.Error("dead player 5 still reported as living")
	}
	if !m.IsLivingPlayer("room1", 6) {
		t.Error("living player 6 reported as dead")
	}

	// Day 1 discussion, then vote. The sheriff's info convicts player 1.
	fireTimer(t, m, "room1")
	if phase := roomPhase(t, m, "room1"); phase != PhaseVote {
		t.Fatalf("phase = %q, want vote", phase)
	}
	for _, voter := range []int64{1, 2, 3, 4, 6, 7} {
		if err := m.SubmitVote("room1", voter, 1); err != nil {
			t.Fatalf("vote by %d: %v", voter, err)
		}
	}
	fireTimer(t, m, "room1")

	vr, ok := sink.lastOfType(7, EventVoteResult)
	if !ok {
		t.Fatal("no vote_result event")
	}
	if vrd := vr.Data.(VoteResultData); vrd.Eliminated == nil || vrd.Eliminated.ID != 1 {
		t.Fatalf("day 1 elimination = %+v, want player 1", vr.Data)
	}

	// One mafia left against four town: day counter advances to night 2.
	pc, _ := sink.lastOfType(7, EventPhaseChange)
	if pcd := pc.Data.(PhaseChangeData); pcd.Phase != PhaseNight || pcd.Day != 2 {
		t.Fatalf("after vote 1: %+v, want night day 2", pcd)
	}

	// Night 2: remaining mafia kills the doctor.
	if err := m.SubmitAction("room1", 2, ActionKill, 3); err != nil {
		t.Fatalf("night 2 kill: %v", err)
	}
	fireTimer(t, m, "room1")

	nr, _ = sink.lastOfType(7, EventNightResult)
	if nrd := nr.Data.(NightResultData); nrd.Victim == nil || nrd.Victim.ID != 3 {
		t.Fatalf("night 2 victim = %+v, want player 3", nr.Data)
	}

	// Day 2: the town votes out the last mafia.
	fireTimer(t, m, "room1")
	for _, voter := range []int64{4, 6, 7} {
		if err := m.SubmitVote("room1", voter, 2); err != nil {
			t.Fatalf("vote by %d: %v", voter, err)
		}
	}
	if err := m.SubmitVote("room1", 2, 4); err != nil {
		t.Fatalf("mafia counter-vote: %v", err)
	}
	fireTimer(t, m, "room1")

	ge, ok := sink.lastOfType(7, EventGameEnded)
	if !ok {
		t.Fatal("no game_ended event")
	}
	if ged := ge.Data.(GameEndedData); ged.Winner != FactionTown {
		t.Errorf("winner = %q, want town", ged.Winner)
	}
	if _, ok := m.getRoom("room1"); ok {
		t.Error("room still registered after the game ended")
	}
}

// With reveal enabled the death announcements and the final event carry
// exact roles.
func TestRevealRolesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RevealRoles = true
	m, sink := newTestManager(cfg)
	joinPlayers(t, m, "room1", 4)
	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	setRoles(t, m, "room1", map[int64]Role{
		1: RoleMafia, 2: RoleMafia, 3: RoleDoctor, 4: RoleSheriff,
	})

	if err := m.SubmitAction("room1", 1, ActionKill, 4); err != nil {
		t.Fatalf("kill: %v", err)
	}
	fireTimer(t, m, "room1")

	nr, ok := sink.lastOfType(1, EventNightResult)
	if !ok {
		t.Fatal("no night_result event")
	}
	if nrd := nr.Data.(NightResultData); nrd.Victim == nil || nrd.Victim.Role != RoleSheriff {
		t.Errorf("victim = %+v, want revealed sheriff", nr.Data)
	}

	// Killing the sheriff brings mafia to parity: game over, roles revealed.
	ge, ok := sink.lastOfType(1, EventGameEnded)
	if !ok {
		t.Fatal("no game_ended event")
	}
	ged := ge.Data.(GameEndedData)
	if ged.Winner != FactionMafia {
		t.Errorf("winner = %q, want mafia", ged.Winner)
	}
	if len(ged.Roles) != 4 {
		t.Errorf("game_ended revealed %d roles, want 4", len(ged.Roles))
	}
}

// With a zero-length discussion window the night resolves straight into the
// vote phase.
func TestZeroDiscussionSkipsDay(t *testing.T) {
	cfg := testConfig()
	cfg.DiscussionSeconds = 0
	m, _ := newTestManager(cfg)
	joinPlayers(t, m, "room1", 5)
	if err := m.Start("room1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fireTimer(t, m, "room1")
	if phase := roomPhase(t, m, "room1"); phase != PhaseVote {
		t.Errorf("phase = %q, want vote (discussion skipped)", phase)
	}
}
