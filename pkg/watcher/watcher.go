// Package watcher connects the SafeLinks decoder to the clipboard, either for
// a single decode or as a polling service.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"unsafelinks/pkg/safelink"
)

const DefaultInterval = 500 * time.Millisecond

// Clipboard failures are wrapped in one of these.
var (
	ErrRead  = errors.New("reading clipboard")
	ErrWrite = errors.New("writing clipboard")
)

// Clipboard is the text clipboard the watcher reads from and writes to.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Config controls the service loop. All callbacks are optional.
type Config struct {
	Interval time.Duration
	OnDecode func(Result)
	OnError  func(error)
}

// Result is the outcome of one decode attempt. Output is only set when
// Decoded is true.
type Result struct {
	Input   string
	Output  string
	Decoded bool
}

// Watcher owns the last clipboard value it has seen, so it must not be shared
// between loops.
type Watcher struct {
	clip     Clipboard
	decoder  *safelink.Decoder
	cfg      Config
	lastSeen string
	seen     bool

	// source is the SafeLink behind the last write. A read of it is stale
	// until the write has been observed on the clipboard.
	source  string
	pending bool
}

func New(clip Clipboard, decoder *safelink.Decoder, cfg Config) *Watcher {
	if decoder == nil {
		decoder = safelink.NewDecoder()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Watcher{
		clip:    clip,
		decoder: decoder,
		cfg:     cfg,
	}
}

// DecodeURL decodes rawURL and copies the result to the clipboard. A value
// that is not a SafeLink leaves the clipboard alone and is not an error.
func (w *Watcher) DecodeURL(rawURL string) (Result, error) {
	return w.decodeAndWrite(rawURL)
}

// DecodeClipboard decodes the current clipboard text in place.
func (w *Watcher) DecodeClipboard() (Result, error) {
	text, err := w.clip.ReadText()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return w.decodeAndWrite(text)
}

// Poll runs one service iteration. Unchanged clipboard text, including the
// watcher's own last write, is skipped.
func (w *Watcher) Poll() (Result, error) {
	text, err := w.clip.ReadText()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if w.unchanged(text) {
		return Result{Input: text}, nil
	}
	w.lastSeen, w.seen = text, true
	w.source, w.pending = "", false

	res, err := w.decodeAndWrite(text)
	if err != nil {
		return res, err
	}
	if res.Decoded {
		w.lastSeen = res.Output
		w.source, w.pending = text, true
		if w.cfg.OnDecode != nil {
			w.cfg.OnDecode(res)
		}
	}
	return res, nil
}

// Run polls the clipboard until ctx is cancelled. Poll failures are passed
// to OnError and never end the loop. Cancellation is observed between polls
// only, so a clipboard write is never interrupted.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.Poll(); err != nil && w.cfg.OnError != nil {
			w.cfg.OnError(err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// LastSeen returns the clipboard value the service last acted on.
func (w *Watcher) LastSeen() (string, bool) {
	return w.lastSeen, w.seen
}

func (w *Watcher) unchanged(text string) bool {
	if w.seen && text == w.lastSeen {
		w.pending = false
		return true
	}
	return w.pending && text == w.source
}

func (w *Watcher) decodeAndWrite(text string) (Result, error) {
	res := Result{Input: text}

	decoded, ok := w.decoder.Decode(text)
	if !ok {
		return res, nil
	}
	if err := w.clip.WriteText(decoded); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	res.Output = decoded
	res.Decoded = true
	return res, nil
}
