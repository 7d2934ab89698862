package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// DefaultLoginAttempts bounds the login retry loop.
const DefaultLoginAttempts = 5

// urlPoll is the interval between location checks after submitting.
const urlPoll = 200 * time.Millisecond

// AuthConfig contains configuration for the login protocol.
type AuthConfig struct {
	LoginURL       string
	Credential     domain.Credential
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	ElementTimeout time.Duration
}

// Authenticator logs the browser session in, solving the captcha on the way.
type Authenticator struct {
	config  AuthConfig
	browser ports.Browser
	solver  *CaptchaSolver
	sel     Selectors
	logger  ports.Logger
}

// NewAuthenticator creates an authenticator. Zero config values fall back to
// the package defaults.
func NewAuthenticator(config AuthConfig, browser ports.Browser, solver *CaptchaSolver, sel Selectors, logger ports.Logger) *Authenticator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultLoginAttempts
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultBackoffMax
	}
	if config.ElementTimeout <= 0 {
		config.ElementTimeout = DefaultElementTimeout
	}
	return &Authenticator{
		config:  config,
		browser: browser,
		solver:  solver,
		sel:     sel,
		logger:  logger,
	}
}

// Login runs the whole login protocol until it succeeds or attempts run out.
// Each failed attempt is discarded and the next starts from a fresh load of
// the login page. Exhaustion returns an error wrapping
// domain.ErrLoginExhausted and the last cause.
func (a *Authenticator) Login(ctx context.Context) error {
	backoff := newBackoff(a.config.BackoffInitial, a.config.BackoffMax)

	var lastErr error
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		a.logger.Info("login attempt",
			ports.Int("attempt", attempt),
			ports.Int("max_attempts", a.config.MaxAttempts),
			ports.String("user", a.config.Credential.Username),
		)

		err := a.attempt(ctx)
		if err == nil {
			a.logger.Info("login succeeded", ports.Int("attempt", attempt))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		a.logger.Warn("login attempt failed",
			ports.Int("attempt", attempt),
			ports.Err(err),
		)

		if attempt < a.config.MaxAttempts {
			if err := backoff.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", domain.ErrLoginExhausted, a.config.MaxAttempts, lastErr)
}

func (a *Authenticator) attempt(ctx context.Context) error {
	timeout := a.config.ElementTimeout

	if err := a.browser.Navigate(ctx, a.config.LoginURL); err != nil {
		return err
	}
	user, err := a.browser.WaitPresent(ctx, a.sel.Username, timeout)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := user.SendKeys(ctx, a.config.Credential.Username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	pass, err := a.browser.Find(ctx, a.sel.Password)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := pass.SendKeys(ctx, a.config.Credential.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}

	if _, err := a.solver.Solve(ctx); err != nil {
		return err
	}

	submit, err := a.browser.WaitClickable(ctx, a.sel.Submit, timeout)
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}
	if err := submit.Click(ctx, ports.ClickDirect); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return a.awaitRedirect(ctx)
}

// awaitRedirect polls the location until it leaves the login URL.
func (a *Authenticator) awaitRedirect(ctx context.Context) error {
	deadline := time.Now().Add(a.config.ElementTimeout)
	for {
		cur, err := a.browser.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if cur != "" && cur != a.config.LoginURL {
			a.logger.Debug("left login page", ports.String("url", cur))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("still on login page after submit: %w", domain.ErrTimeout)
		}
		if err := sleep(ctx, urlPoll); err != nil {
			return err
		}
	}
}
