package testutil

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// MockClock is a controllable clock for timer tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// MockWriter is a log sink that records output. It satisfies
// zapcore.WriteSyncer.
type MockWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Reset clears the buffer.
func (mw *MockWriter) Reset() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.buf.Reset()
}

// Sync implements zapcore.WriteSyncer.
func (mw *MockWriter) Sync() error {
	return nil
}

// Lines returns the recorded output split into non-empty lines.
func (mw *MockWriter) Lines() []string {
	var lines []string
	for _, l := range strings.Split(mw.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
