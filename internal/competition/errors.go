package competition

import "errors"

// The full recoverable outcome taxonomy. None of these terminate a session or
// the process; command handlers map them to user-facing replies.
var (
	// ErrAlreadyActive is returned when starting a competition in a channel
	// that already has one running.
	ErrAlreadyActive = errors.New("competition already active in this channel")
	// ErrNoActiveSession is returned when acting on a channel without a
	// running competition.
	ErrNoActiveSession = errors.New("no active competition")
	// ErrNotParticipating is returned when a user submits an answer without
	// a route to any running competition.
	ErrNotParticipating = errors.New("not participating in any competition")
	// ErrQuestionOutOfRange is returned for question numbers outside 1..N.
	ErrQuestionOutOfRange = errors.New("question number out of range")
	// ErrWrongQuestion is returned for submissions against a past or future
	// question index.
	ErrWrongQuestion = errors.New("not the current question")
	// ErrIncorrectAnswer is returned on an answer mismatch; resubmission is
	// allowed.
	ErrIncorrectAnswer = errors.New("incorrect answer")
	// ErrInsufficientPermission is returned when the requester may not
	// manage competitions in the channel.
	ErrInsufficientPermission = errors.New("insufficient permission")
)
