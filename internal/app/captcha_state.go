package app

import (
	"fmt"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// CaptchaState is a step of one captcha challenge.
type CaptchaState int

const (
	CaptchaDisplayed CaptchaState = iota
	CaptchaCheckboxClicked
	CaptchaAutoApproved
	CaptchaAudioChallengeShown
	CaptchaAudioRequested
	CaptchaAudioDownloaded
	CaptchaTranscribed
	CaptchaResponseSubmitted
	CaptchaVerified
	CaptchaRejected
)

// String returns a human-readable representation of the state.
func (s CaptchaState) String() string {
	switch s {
	case CaptchaDisplayed:
		return "Displayed"
	case CaptchaCheckboxClicked:
		return "CheckboxClicked"
	case CaptchaAutoApproved:
		return "AutoApproved"
	case CaptchaAudioChallengeShown:
		return "AudioChallengeShown"
	case CaptchaAudioRequested:
		return "AudioRequested"
	case CaptchaAudioDownloaded:
		return "AudioDownloaded"
	case CaptchaTranscribed:
		return "Transcribed"
	case CaptchaResponseSubmitted:
		return "ResponseSubmitted"
	case CaptchaVerified:
		return "Verified"
	case CaptchaRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s CaptchaState) Terminal() bool {
	return s == CaptchaAutoApproved || s == CaptchaVerified || s == CaptchaRejected
}

// Solved reports whether the state grants access.
func (s CaptchaState) Solved() bool {
	return s == CaptchaAutoApproved || s == CaptchaVerified
}

// challenge tracks one captcha attempt. It is owned by a single Solve call.
type challenge struct {
	state  CaptchaState
	logger ports.Logger
}

func newChallenge(logger ports.Logger) *challenge {
	return &challenge{state: CaptchaDisplayed, logger: logger}
}

// State returns the current state.
func (c *challenge) State() CaptchaState {
	return c.state
}

// TransitionTo moves to next if the move is legal. Any non-terminal state may
// move to Rejected.
func (c *challenge) TransitionTo(next CaptchaState) error {
	prev := c.state

	valid := false
	switch {
	case prev.Terminal():
	case next == CaptchaRejected:
		valid = true
	default:
		switch prev {
		case CaptchaDisplayed:
			valid = next == CaptchaCheckboxClicked
		case CaptchaCheckboxClicked:
			valid = next == CaptchaAutoApproved || next == CaptchaAudioChallengeShown
		case CaptchaAudioChallengeShown:
			valid = next == CaptchaAudioRequested
		case CaptchaAudioRequested:
			valid = next == CaptchaAudioDownloaded
		case CaptchaAudioDownloaded:
			valid = next == CaptchaTranscribed
		case CaptchaTranscribed:
			valid = next == CaptchaResponseSubmitted
		case CaptchaResponseSubmitted:
			valid = next == CaptchaVerified
		}
	}
	if !valid {
		return fmt.Errorf("captcha %s -> %s: %w", prev, next, domain.ErrInvalidTransition)
	}

	c.state = next
	c.logger.Debug("captcha transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
	)
	return nil
}
