// Package clipboard provides plain-text access to the system clipboard.
// Each call opens the clipboard, performs one read or one write and releases
// it again, so other programs can use the clipboard between calls. The
// platform work (Win32 global memory, pbcopy, xclip/xsel/wl-clipboard) is
// left to github.com/atotto/clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	atotto "github.com/atotto/clipboard"
)

const (
	DefaultWriteAttempts = 5
	DefaultRetryDelay    = 100 * time.Millisecond
)

// ErrUnavailable is returned when the clipboard holds no text or cannot be
// opened (locked by another process, no clipboard utility installed).
var ErrUnavailable = errors.New("clipboard text unavailable")

// Swapped out in tests.
var (
	readAll     = atotto.ReadAll
	writeAll    = atotto.WriteAll
	unsupported = func() bool { return atotto.Unsupported }
	sleep       = time.Sleep
)

// System is the native clipboard.
type System struct {
	Attempts   int
	RetryDelay time.Duration
}

// NewSystem returns a System with the default write retry policy.
func NewSystem() *System {
	return &System{
		Attempts:   DefaultWriteAttempts,
		RetryDelay: DefaultRetryDelay,
	}
}

// ReadText returns the clipboard text. Non-text content, an empty clipboard
// and backend failures all yield an error wrapping ErrUnavailable.
func (s *System) ReadText() (string, error) {
	if unsupported() {
		return "", fmt.Errorf("%w: no clipboard backend found", ErrUnavailable)
	}
	text, err := readAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if text == "" {
		return "", ErrUnavailable
	}
	return text, nil
}

// WriteText replaces the clipboard with text, retrying while the clipboard
// is held by another process.
func (s *System) WriteText(text string) error {
	if unsupported() {
		return fmt.Errorf("%w: no clipboard backend found", ErrUnavailable)
	}

	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && s.RetryDelay > 0 {
			sleep(s.RetryDelay)
		}
		if err = writeAll(text); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: write failed after %d attempts: %v", ErrUnavailable, attempts, err)
}
