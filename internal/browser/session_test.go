package browser_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vijay-2155/VignanEcap/internal/browser"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestZeroSessionIsSafe(t *testing.T) {
	var sess browser.Session

	assert.Equal(t, browser.StateUninitialized, sess.State())
	assert.NotNil(t, sess.Context())

	// Close on an uninitialized session must be a harmless no-op.
	sess.Close()
	assert.Equal(t, browser.StateUninitialized, sess.State())
}

func TestNilSessionIsSafe(t *testing.T) {
	var sess *browser.Session

	sess.Close()
	assert.Equal(t, browser.StateUninitialized, sess.State())
	assert.Equal(t, context.Background(), sess.Context())
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := browser.NewManager(browser.Config{Headless: true}, discard())

	var sess browser.Session
	m.Release(&sess)
	m.Release(&sess)
	m.Release(nil)
}
