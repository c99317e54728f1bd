package domain

import "errors"

var (
	// ErrInvalidState is returned when an operation needs a quiz session that does not exist
	// or that is not in the required state.
	ErrInvalidState = errors.New("invalid quiz state")
	// ErrOutOfSequence indicates an answer for a question other than the pending one,
	// typically a stale button pressed after a retake.
	ErrOutOfSequence = errors.New("answer out of sequence")
	// ErrInvalidOption indicates a label that does not belong to the question.
	ErrInvalidOption = errors.New("invalid option")
	// ErrAlreadyFinalized is returned by a second finalize of the same attempt.
	ErrAlreadyFinalized = errors.New("attempt already finalized")
	// ErrStoreUnavailable wraps failures of the durable store or the session store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrQuestionnaireNotFound indicates the configured question set could not be loaded.
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	// ErrInvalidQuestionnaire indicates question content that breaks ordinal or option rules.
	ErrInvalidQuestionnaire = errors.New("invalid questionnaire")
	// ErrInvalidUser indicates a missing or malformed user identity from a transport.
	ErrInvalidUser = errors.New("invalid user")
)
