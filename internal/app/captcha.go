package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bft-labs/penpal/internal/audio"
	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// DefaultElementTimeout bounds every element wait.
const DefaultElementTimeout = 10 * time.Second

// maxAudioBytes caps the challenge download.
const maxAudioBytes = 10 << 20

// confirmPoll is the interval between checkbox state checks.
const confirmPoll = 250 * time.Millisecond

// clickOrder is the sequence of strategies tried on a stubborn control.
var clickOrder = []ports.ClickStrategy{ports.ClickDirect, ports.ClickScripted, ports.ClickPointer}

// CaptchaSolver defeats the checkbox captcha on the login form, falling back
// to the audio challenge when the checkbox alone is not accepted.
type CaptchaSolver struct {
	browser     ports.Browser
	transcriber ports.Transcriber
	client      ports.HTTPClient
	sel         Selectors
	timeout     time.Duration
	logger      ports.Logger
}

// NewCaptchaSolver creates a solver. client downloads the challenge audio.
func NewCaptchaSolver(
	browser ports.Browser,
	transcriber ports.Transcriber,
	client ports.HTTPClient,
	sel Selectors,
	timeout time.Duration,
	logger ports.Logger,
) *CaptchaSolver {
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	return &CaptchaSolver{
		browser:     browser,
		transcriber: transcriber,
		client:      client,
		sel:         sel,
		timeout:     timeout,
		logger:      logger,
	}
}

// Solve runs one challenge from the displayed checkbox to a terminal state.
// It returns the final state; any state other than AutoApproved or Verified
// comes with an error wrapping domain.ErrCaptchaUnsolved. Focus is back on
// the top-level document when Solve returns.
func (s *CaptchaSolver) Solve(ctx context.Context) (CaptchaState, error) {
	c := newChallenge(s.logger)
	defer s.browser.SwitchToDefault(context.WithoutCancel(ctx))

	if err := s.solve(ctx, c); err != nil {
		if !c.State().Terminal() {
			_ = c.TransitionTo(CaptchaRejected)
		}
		s.logger.Warn("captcha rejected", ports.Err(err))
		return c.State(), fmt.Errorf("%w: %w", domain.ErrCaptchaUnsolved, err)
	}
	s.logger.Info("captcha solved", ports.String("state", c.State().String()))
	return c.State(), nil
}

func (s *CaptchaSolver) solve(ctx context.Context, c *challenge) error {
	if err := s.clickCheckbox(ctx); err != nil {
		return err
	}
	if err := c.TransitionTo(CaptchaCheckboxClicked); err != nil {
		return err
	}

	if err := s.browser.SwitchToDefault(ctx); err != nil {
		return err
	}
	frame, err := s.browser.WaitClickable(ctx, s.sel.ChallengeFrame, s.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, domain.ErrTimeout) && !errors.Is(err, domain.ErrElementNotFound) {
			return fmt.Errorf("wait for challenge: %w", err)
		}
		approved, err := s.checkboxChecked(ctx)
		if err != nil {
			return err
		}
		if !approved {
			return errors.New("no challenge shown and checkbox not checked")
		}
		return c.TransitionTo(CaptchaAutoApproved)
	}

	if err := c.TransitionTo(CaptchaAudioChallengeShown); err != nil {
		return err
	}
	return s.solveAudio(ctx, c, frame)
}

func (s *CaptchaSolver) clickCheckbox(ctx context.Context) error {
	if err := s.enterFrame(ctx, s.sel.CheckboxFrame); err != nil {
		return err
	}
	box, err := s.browser.WaitClickable(ctx, s.sel.Checkbox, s.timeout)
	if err != nil {
		return fmt.Errorf("checkbox: %w", err)
	}
	if err := box.ScrollIntoView(ctx); err != nil {
		s.logger.Debug("scroll checkbox failed", ports.Err(err))
	}
	return s.clickAny(ctx, box, "checkbox")
}

func (s *CaptchaSolver) solveAudio(ctx context.Context, c *challenge, frame ports.Element) error {
	if err := s.browser.SwitchToFrame(ctx, frame); err != nil {
		return fmt.Errorf("enter challenge frame: %w", err)
	}
	btn, err := s.browser.WaitClickable(ctx, s.sel.AudioButton, s.timeout)
	if err != nil {
		return fmt.Errorf("audio button: %w", err)
	}
	if err := s.clickAny(ctx, btn, "audio button"); err != nil {
		return err
	}
	if err := c.TransitionTo(CaptchaAudioRequested); err != nil {
		return err
	}

	source, err := s.browser.WaitPresent(ctx, s.sel.AudioSource, s.timeout)
	if err != nil {
		return fmt.Errorf("audio source: %w", err)
	}
	src, err := source.Attribute(ctx, "src")
	if err != nil {
		return err
	}
	if src == "" {
		return errors.New("audio source has no src")
	}
	raw, err := s.download(ctx, src)
	if err != nil {
		return err
	}
	if err := c.TransitionTo(CaptchaAudioDownloaded); err != nil {
		return err
	}

	clip, err := audio.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize audio: %w", err)
	}
	text, err := s.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if err := c.TransitionTo(CaptchaTranscribed); err != nil {
		return err
	}

	field, err := s.browser.WaitPresent(ctx, s.sel.AudioResponse, s.timeout)
	if err != nil {
		return fmt.Errorf("response field: %w", err)
	}
	if err := field.SendKeys(ctx, text); err != nil {
		return fmt.Errorf("type response: %w", err)
	}
	verify, err := s.browser.WaitClickable(ctx, s.sel.VerifyButton, s.timeout)
	if err != nil {
		return fmt.Errorf("verify button: %w", err)
	}
	if err := s.clickAny(ctx, verify, "verify button"); err != nil {
		return err
	}
	if err := c.TransitionTo(CaptchaResponseSubmitted); err != nil {
		return err
	}

	if err := s.awaitChecked(ctx); err != nil {
		return err
	}
	return c.TransitionTo(CaptchaVerified)
}

// enterFrame focuses the top-level frame matched by selector.
func (s *CaptchaSolver) enterFrame(ctx context.Context, selector string) error {
	if err := s.browser.SwitchToDefault(ctx); err != nil {
		return err
	}
	frame, err := s.browser.WaitPresent(ctx, selector, s.timeout)
	if err != nil {
		return fmt.Errorf("frame %q: %w", selector, err)
	}
	if err := s.browser.SwitchToFrame(ctx, frame); err != nil {
		return fmt.Errorf("enter frame %q: %w", selector, err)
	}
	return nil
}

// checkboxChecked reports the anchor's aria-checked state.
func (s *CaptchaSolver) checkboxChecked(ctx context.Context) (bool, error) {
	if err := s.enterFrame(ctx, s.sel.CheckboxFrame); err != nil {
		return false, err
	}
	anchor, err := s.browser.WaitPresent(ctx, s.sel.CheckboxAnchor, s.timeout)
	if err != nil {
		return false, fmt.Errorf("checkbox anchor: %w", err)
	}
	v, err := anchor.Attribute(ctx, "aria-checked")
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// awaitChecked polls the checkbox until it reports checked or the element
// timeout elapses.
func (s *CaptchaSolver) awaitChecked(ctx context.Context) error {
	deadline := time.Now().Add(s.timeout)
	for {
		ok, err := s.checkboxChecked(ctx)
		if err == nil && ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("confirm verification: %w", err)
			}
			return fmt.Errorf("confirm verification: %w", domain.ErrTimeout)
		}
		if err := sleep(ctx, confirmPoll); err != nil {
			return err
		}
	}
}

// clickAny tries each strategy in turn and fails only when all of them do.
func (s *CaptchaSolver) clickAny(ctx context.Context, el ports.Element, what string) error {
	var errs []error
	for _, strategy := range clickOrder {
		err := el.Click(ctx, strategy)
		if err == nil {
			s.logger.Debug("clicked",
				ports.String("target", what),
				ports.String("strategy", strategy.String()),
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("click %s: %w", what, errors.Join(errs...))
}

func (s *CaptchaSolver) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("create audio request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("download audio: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	s.logger.Debug("audio downloaded", ports.Int("bytes", len(raw)))
	return raw, nil
}
