package domain

import "errors"

// Outcome is the terminal state of one candidate in the intake pipeline.
type Outcome string

const (
	OutcomeIndexed      Outcome = "indexed"
	OutcomeExcluded     Outcome = "excluded"
	OutcomeAlreadyKnown Outcome = "already_known"
	OutcomeRejected     Outcome = "rejected"
	OutcomeNoFace       Outcome = "no_face"
	OutcomeFailed       Outcome = "failed"
)

var (
	ErrBadSiteURL        = errors.New("site url has no origin")
	ErrURLTooLong        = errors.New("url exceeds stored length")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrFetchFailed       = errors.New("image download failed")
)

// Result describes what happened to one candidate.
type Result struct {
	Candidate Candidate
	Outcome   Outcome
	FaceIDs   []string
	// Retryable is set on failures a later redelivery could fix.
	Retryable bool
	Err       error
}

// Terminal reports whether the candidate needs no further attempts.
func (r Result) Terminal() bool {
	return r.Outcome != OutcomeFailed || !r.Retryable
}
