package main

import (
	"fmt"
	"strings"
)

// GameError is a caller-visible failure returned on the originating
// request. None are fatal; a failed operation leaves all state unchanged.
type GameError struct {
	Code    string
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func gameErrorf(code, format string, args ...any) *GameError {
	return &GameError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	errInvalidGroup      = &GameError{Code: "invalid_group", Message: "That group does not exist."}
	errNoRoleAvailable   = &GameError{Code: "no_role_available", Message: "All roles in that group are taken."}
	errAlreadyRegistered = &GameError{Code: "already_registered", Message: "This connection is already registered."}
	errNotRegistered     = &GameError{Code: "unauthorized", Message: "Register before playing."}
	errNotAdmin          = &GameError{Code: "unauthorized", Message: "Admin login required."}
	errEmptyName         = &GameError{Code: "empty_name", Message: "A name is required."}
	errEmptyMessage      = &GameError{Code: "empty_message", Message: "The message is empty."}
	errEmptyAnswer       = &GameError{Code: "empty_answer", Message: "The answer is empty."}
	errNotSubmitter      = &GameError{Code: "not_submitter", Message: "Only the submitter role may answer."}
	errBadCredentials    = &GameError{Code: "bad_credentials", Message: "Invalid admin credentials."}
)

func errDirectionForbidden(to Role) *GameError {
	return gameErrorf("direction_forbidden", "Sending to role %s is not allowed.", to)
}

func errRecipientNotFound(to Role) *GameError {
	return gameErrorf("recipient_not_found", "Nobody in your group holds role %s.", to)
}

func errAnswerNotOnCards(missing []Role) *GameError {
	names := make([]string, len(missing))
	for i, r := range missing {
		names[i] = string(r)
	}
	return gameErrorf("answer_not_on_cards", "Wrong answer. Missing from cards: %s.", strings.Join(names, ", "))
}
