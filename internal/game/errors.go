package game

import "errors"

var ErrRoomClosed = errors.New("cannot join game in progress")
var ErrPlayerNotFound = errors.New("player not found")
var ErrTeamsLocked = errors.New("cannot change teams during an active game")
var ErrAlreadyStarting = errors.New("game is already starting")
var ErrCannotStart = errors.New("cannot start game: not all conditions met")
var ErrNoActiveRound = errors.New("no active round")
var ErrNoMoreWords = errors.New("no more words available")
var ErrScoresAdjusted = errors.New("scores already adjusted for this round")
var ErrBadAdjustment = errors.New("adjustment value must be -1, 0, or 1")
var ErrNotReadyForRound = errors.New("next explainer must confirm ready first")
var ErrEmptyMessage = errors.New("message cannot be empty")
var ErrMessageTooLong = errors.New("message too long")
