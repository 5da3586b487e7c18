package main

import "log"

// voteAbstain is the target id a living player submits to abstain. An
// abstention is a cast vote that counts for no target.
const voteAbstain int64 = 0

// SubmitVote records a day vote for a living player. Same overwrite
// semantics as night actions: the last submission within the open window
// wins, and the window closes for good when the vote timer fires.
func (m *RoomManager) SubmitVote(roomID string, voterID, targetID int64) error {
	r, ok := m.getRoom(roomID)
	if !ok {
		m.sendErrorEvent(voterID, roomID, "Unknown room")
		return errUnknownRoom
	}

	r.mu.Lock()
	if r.phase != PhaseVote {
		r.mu.Unlock()
		m.sendErrorEvent(voterID, roomID, "Voting only allowed during the vote phase")
		return errInvalidPhase
	}

	voter := r.playerByID(voterID)
	if voter == nil || !voter.Alive {
		r.mu.Unlock()
		m.sendErrorEvent(voterID, roomID, "Dead players cannot vote")
		return errNotEligible
	}

	if targetID != voteAbstain {
		target := r.playerByID(targetID)
		if target == nil || !target.Alive {
			r.mu.Unlock()
			m.sendErrorEvent(voterID, roomID, "Cannot vote for a dead or unknown player")
			return errNotEligible
		}
	}

	r.votes[voterID] = targetID
	day := r.day
	r.mu.Unlock()

	log.Printf("Room %q day %d: player %d voted for %d", roomID, day, voterID, targetID)
	DebugLog("SubmitVote", "Room %q: player %d -> %d", roomID, voterID, targetID)
	m.sink.toPlayer(voterID, Event{Type: EventVoteAck, Data: AckData{RoomID: roomID, TargetID: targetID}})
	return nil
}

// tallyVotes computes the elimination target. Pure function.
//
// Only living voters count, and a vote for a dead or non-existent player is
// discarded. The target with strictly the most votes is eliminated; an exact
// tie among the top targets eliminates nobody (ties favor the accused), and
// zero cast votes eliminate nobody. Returns 0 when there is no elimination.
func tallyVotes(votes map[int64]int64, players []*Player) int64 {
	byID := make(map[int64]*Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	counts := make(map[int64]int)
	for voterID, targetID := range votes {
		voter := byID[voterID]
		if voter == nil || !voter.Alive {
			continue
		}
		if targetID == voteAbstain {
			continue
		}
		target := byID[targetID]
		if target == nil || !target.Alive {
			continue
		}
		counts[targetID]++
	}

	var eliminated int64
	var maxVotes int
	tied := false
	for targetID, count := range counts {
		switch {
		case count > maxVotes:
			maxVotes = count
			eliminated = targetID
			tied = false
		case count == maxVotes:
			tied = true
		}
	}

	if maxVotes == 0 || tied {
		return 0
	}
	return eliminated
}
