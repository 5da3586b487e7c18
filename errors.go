package main

import "errors"

// Intent validation errors. These are reported back to the acting player only
// and never terminate a room; see sendErrorEvent.
var (
	errInsufficientPlayers = errors.New("at least 4 players are required to start")
	errAlreadyStarted      = errors.New("game already started")
	errAlreadyAssigned     = errors.New("roles already assigned")
	errInvalidPhase        = errors.New("intent not valid in current phase")
	errUnknownRoom         = errors.New("unknown room")
	errNotEligible         = errors.New("player not eligible for this action")
	errNotHost             = errors.New("only the host may do that")
)
