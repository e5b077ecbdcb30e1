// Package testutil holds assertion and timing helpers shared by the
// gofabric test suites.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
)

// TestTimeout is the default timeout for tests
const TestTimeout = 5 * time.Second

// WithTimeout creates a context with the default test timeout
func WithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want %v", err, target)
	}
}

// AssertEqual fails the test if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// AssertMisuse fails the test unless fn panics with an errors.MisuseError.
func AssertMisuse(t *testing.T, fn func()) {
	t.Helper()
	r := CapturePanic(fn)
	if r == nil {
		t.Fatal("expected misuse panic, got none")
	}
	if !gferrors.IsMisuse(r) {
		t.Fatalf("expected misuse panic, got %v", r)
	}
}

// CapturePanic runs fn and returns the recovered panic value, if any.
func CapturePanic(fn func()) (recovered interface{}) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}

// Eventually polls cond until it returns true or TestTimeout elapses.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(TestTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", TestTimeout, msg)
}

// WaitDone waits for done to be closed or fails after TestTimeout.
func WaitDone(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(TestTimeout):
		t.Fatalf("timed out after %v: %s", TestTimeout, msg)
	}
}
