package errors

import "errors"

var (
	ErrNotOwner               = errors.New("caller is not the election owner")
	ErrZeroIdentifier         = errors.New("principal is the reserved zero identifier")
	ErrAlreadyRegistered      = errors.New("principal is already registered")
	ErrRegistrationClosed     = errors.New("registration phase is closed")
	ErrDurationTooShort       = errors.New("voting window ends too soon")
	ErrDurationTooLong        = errors.New("voting window ends too late")
	ErrVotingNotOpen          = errors.New("voting is not open")
	ErrCandidateNotRegistered = errors.New("candidate is not registered")
	ErrVoterNotRegistered     = errors.New("voter is not registered")
	ErrAlreadyVoted           = errors.New("voter has already voted")
	ErrElectionEnded          = errors.New("election has ended")
	ErrElectionNotEnded       = errors.New("election has not ended")
)
