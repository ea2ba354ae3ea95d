package portal

import (
	"context"
	"log/slog"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/vijay-2155/VignanEcap/internal/browser"
	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
	"github.com/vijay-2155/VignanEcap/internal/retry"
)

// Login page anchors.
const (
	usernameSelector = `#txtId2`
	passwordSelector = `#txtPwd2`
	submitSelector   = `#imgBtn2`

	// loginMarkerSelector appears only after a successful login.
	loginMarkerSelector = `#divscreens`
)

// The portal transforms the typed credentials client-side before the real
// submit. Skipping either call produces a silent login failure rather than
// an error, so both must run, in this order, after the fields are filled.
const (
	encryptScript  = `encryptJSText(2)`
	setValueScript = `setValue(2)`
)

// Login drives the portal's login sequence on the session. A post-login
// marker that never becomes visible is reported as an authentication
// failure: at this layer it is indistinguishable from wrong credentials.
func (c *Client) Login(ctx context.Context, sess *browser.Session, creds Credentials) error {
	run := sess.Context()

	if err := chromedp.Run(run, network.ClearBrowserCookies()); err != nil {
		return apperrors.NewNavigationError("failed to clear cookies", err)
	}

	err := retry.Do(ctx, c.attempts, c.backoff, func() error {
		return chromedp.Run(run, chromedp.Navigate(c.cfg.LoginURL))
	})
	if err != nil {
		return apperrors.NewNavigationError("failed to load login page", err)
	}

	waitCtx, cancel := context.WithTimeout(run, c.cfg.ElementTimeout)
	defer cancel()
	err = chromedp.Run(waitCtx,
		chromedp.WaitVisible(usernameSelector, chromedp.ByID),
		chromedp.WaitVisible(passwordSelector, chromedp.ByID),
	)
	if err != nil {
		return apperrors.NewElementNotFoundError("login form fields not found", err).
			WithContext("selector", usernameSelector)
	}

	err = chromedp.Run(run,
		chromedp.Clear(usernameSelector, chromedp.ByID),
		chromedp.Clear(passwordSelector, chromedp.ByID),
		chromedp.SendKeys(usernameSelector, creds.Username, chromedp.ByID),
		chromedp.SendKeys(passwordSelector, creds.Password, chromedp.ByID),
	)
	if err != nil {
		return apperrors.NewElementNotFoundError("failed to fill login form", err)
	}

	// A disabled or script-guarded field accepts keys silently; read the
	// value back to catch that before submitting.
	var typed string
	if err := chromedp.Run(run, chromedp.Value(usernameSelector, &typed, chromedp.ByID)); err != nil {
		return apperrors.NewElementNotFoundError("failed to read back username field", err)
	}
	if typed != creds.Username {
		return apperrors.NewInputVerificationError("failed to input username correctly")
	}

	if err := chromedp.Run(run,
		chromedp.Evaluate(encryptScript, nil),
		chromedp.Evaluate(setValueScript, nil),
	); err != nil {
		return apperrors.NewAuthenticationError("pre-submit transformation failed", err)
	}

	clickCtx, cancelClick := context.WithTimeout(run, c.cfg.ElementTimeout)
	defer cancelClick()
	if err := chromedp.Run(clickCtx,
		chromedp.WaitEnabled(submitSelector, chromedp.ByID),
		chromedp.Click(submitSelector, chromedp.ByID),
	); err != nil {
		return apperrors.NewElementNotFoundError("login button not clickable", err)
	}

	markerCtx, cancelMarker := context.WithTimeout(run, c.cfg.ElementTimeout)
	defer cancelMarker()
	if err := chromedp.Run(markerCtx, chromedp.WaitVisible(loginMarkerSelector, chromedp.ByID)); err != nil {
		return apperrors.NewAuthenticationError("login failed, check your username and password", err)
	}

	c.logger.Info("login successful", slog.String("marker", loginMarkerSelector))
	return nil
}
