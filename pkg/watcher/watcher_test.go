package watcher

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"unsafelinks/pkg/clipboard"
	"unsafelinks/pkg/safelink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClipboard returns queued reads in order and then keeps returning
// whatever was last written or read.
type scriptedClipboard struct {
	mu       sync.Mutex
	reads    []string
	current  string
	readErr  error
	writeErr error
	writes   []string
	polls    int
}

func (c *scriptedClipboard) ReadText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if c.readErr != nil {
		return "", c.readErr
	}
	if len(c.reads) > 0 {
		c.current = c.reads[0]
		c.reads = c.reads[1:]
	}
	return c.current, nil
}

func (c *scriptedClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, text)
	c.current = text
	return nil
}

func (c *scriptedClipboard) snapshot() (writes []string, polls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...), c.polls
}

func buildSafeLink(region, target string) string {
	return "https://" + region + ".safelinks.protection.outlook.com/?url=" + url.QueryEscape(target) + "&data=05%7C02&reserved=0"
}

func TestPoll_WritesOncePerChange(t *testing.T) {
	const decodedB = "https://duckduckgo.com"
	a := "some notes"
	b := buildSafeLink("eur01", decodedB)
	c := "https://example.com"

	clip := &scriptedClipboard{reads: []string{a, a, b, b, decodedB, decodedB, c}}
	var notices []Result
	w := New(clip, nil, Config{OnDecode: func(r Result) { notices = append(notices, r) }})

	for i := 0; i < 7; i++ {
		_, err := w.Poll()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{decodedB}, clip.writes)
	require.Len(t, notices, 1)
	assert.Equal(t, Result{Input: b, Output: decodedB, Decoded: true}, notices[0])

	last, ok := w.LastSeen()
	assert.True(t, ok)
	assert.Equal(t, c, last)
}

func TestPoll_IgnoresOwnWrite(t *testing.T) {
	link := buildSafeLink("nam02", "https://example.org/a")
	clip := &scriptedClipboard{reads: []string{link}}
	w := New(clip, nil, Config{})

	res, err := w.Poll()
	require.NoError(t, err)
	assert.True(t, res.Decoded)

	// The clipboard now holds the decoded value written above.
	res, err = w.Poll()
	require.NoError(t, err)
	assert.False(t, res.Decoded)
	assert.Equal(t, []string{"https://example.org/a"}, clip.writes)
}

func TestPoll_RecopiedLinkDecodesAgain(t *testing.T) {
	link := buildSafeLink("eur01", "https://example.org")
	clip := &scriptedClipboard{reads: []string{link, "https://example.org", "other text", link}}
	w := New(clip, nil, Config{})

	for i := 0; i < 4; i++ {
		_, err := w.Poll()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"https://example.org", "https://example.org"}, clip.writes)
}

func TestPoll_RecopyAfterDecode(t *testing.T) {
	link := buildSafeLink("eur01", "https://example.org")
	clip := &scriptedClipboard{reads: []string{link, "https://example.org", link}}
	w := New(clip, nil, Config{})

	for i := 0; i < 3; i++ {
		_, err := w.Poll()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"https://example.org", "https://example.org"}, clip.writes)

	last, ok := w.LastSeen()
	assert.True(t, ok)
	assert.Equal(t, "https://example.org", last)
}

func TestPoll_LastSeenIsDecodedValue(t *testing.T) {
	link := buildSafeLink("gbr01", "https://example.org/b")
	clip := &scriptedClipboard{reads: []string{link}}
	w := New(clip, nil, Config{})

	_, err := w.Poll()
	require.NoError(t, err)

	last, ok := w.LastSeen()
	assert.True(t, ok)
	assert.Equal(t, "https://example.org/b", last)
}

func TestPoll_EmptyStringIsAChange(t *testing.T) {
	clip := &scriptedClipboard{reads: []string{""}}
	w := New(clip, nil, Config{})

	_, err := w.Poll()
	require.NoError(t, err)

	last, ok := w.LastSeen()
	assert.True(t, ok)
	assert.Equal(t, "", last)
}

func TestPoll_WriteFailureDoesNotRetrigger(t *testing.T) {
	link := buildSafeLink("eur01", "https://example.org")
	clip := &scriptedClipboard{reads: []string{link, link}, writeErr: clipboard.ErrUnavailable}
	var decodes int
	w := New(clip, nil, Config{OnDecode: func(Result) { decodes++ }})

	_, err := w.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, clipboard.ErrUnavailable)

	res, err := w.Poll()
	require.NoError(t, err)
	assert.False(t, res.Decoded)
	assert.Zero(t, decodes)
}

func TestPoll_ReadFailure(t *testing.T) {
	clip := &scriptedClipboard{readErr: clipboard.ErrUnavailable}
	w := New(clip, nil, Config{})

	_, err := w.Poll()
	assert.ErrorIs(t, err, clipboard.ErrUnavailable)

	_, ok := w.LastSeen()
	assert.False(t, ok)
}

func TestDecodeURL(t *testing.T) {
	t.Run("safelink is copied", func(t *testing.T) {
		clip := &scriptedClipboard{current: "untouched"}
		w := New(clip, nil, Config{})

		res, err := w.DecodeURL(buildSafeLink("gbr01", "https://example.com/path?q=1"))
		require.NoError(t, err)
		assert.True(t, res.Decoded)
		assert.Equal(t, "https://example.com/path?q=1", res.Output)
		assert.Equal(t, []string{"https://example.com/path?q=1"}, clip.writes)
	})

	t.Run("plain url leaves clipboard alone", func(t *testing.T) {
		clip := &scriptedClipboard{current: "untouched"}
		w := New(clip, nil, Config{})

		res, err := w.DecodeURL("https://example.com")
		require.NoError(t, err)
		assert.False(t, res.Decoded)
		assert.Empty(t, clip.writes)
		assert.Equal(t, "untouched", clip.current)
	})

	t.Run("write failure", func(t *testing.T) {
		clip := &scriptedClipboard{writeErr: errors.New("locked")}
		w := New(clip, nil, Config{})

		_, err := w.DecodeURL(buildSafeLink("eur01", "https://example.com"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWrite)
		assert.Contains(t, err.Error(), "writing clipboard: locked")
	})
}

func TestDecodeClipboard(t *testing.T) {
	t.Run("decodes in place", func(t *testing.T) {
		clip := &scriptedClipboard{current: buildSafeLink("eur01", "https://duckduckgo.com")}
		w := New(clip, nil, Config{})

		res, err := w.DecodeClipboard()
		require.NoError(t, err)
		assert.True(t, res.Decoded)
		assert.Equal(t, "https://duckduckgo.com", clip.current)
	})

	t.Run("nothing to decode", func(t *testing.T) {
		clip := &scriptedClipboard{current: "hello"}
		w := New(clip, nil, Config{})

		res, err := w.DecodeClipboard()
		require.NoError(t, err)
		assert.False(t, res.Decoded)
		assert.Empty(t, clip.writes)
	})

	t.Run("unreadable clipboard", func(t *testing.T) {
		clip := &scriptedClipboard{readErr: clipboard.ErrUnavailable}
		w := New(clip, nil, Config{})

		_, err := w.DecodeClipboard()
		assert.ErrorIs(t, err, clipboard.ErrUnavailable)
		assert.ErrorIs(t, err, ErrRead)
		assert.Empty(t, clip.writes)
	})
}

func TestNew_CustomDecoder(t *testing.T) {
	link := "https://gcc01.safelinks.protection.office365.us/?url=https%3A%2F%2Fexample.gov"
	clip := &scriptedClipboard{}
	w := New(clip, safelink.NewDecoder("safelinks.protection.office365.us"), Config{})

	res, err := w.DecodeURL(link)
	require.NoError(t, err)
	assert.True(t, res.Decoded)
	assert.Equal(t, "https://example.gov", res.Output)
}

func TestRun_StopsOnCancel(t *testing.T) {
	link := buildSafeLink("eur01", "https://example.com")
	clip := &scriptedClipboard{reads: []string{"a", link}}
	decoded := make(chan Result, 1)

	w := New(clip, nil, Config{
		Interval: time.Millisecond,
		OnDecode: func(r Result) { decoded <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case r := <-decoded:
		assert.Equal(t, "https://example.com", r.Output)
	case <-time.After(5 * time.Second):
		t.Fatal("service loop never decoded the SafeLink")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	writes, _ := clip.snapshot()
	assert.Equal(t, []string{"https://example.com"}, writes)
}

func TestRun_SurvivesReadErrors(t *testing.T) {
	clip := &scriptedClipboard{readErr: clipboard.ErrUnavailable}
	var mu sync.Mutex
	var errs []error

	w := New(clip, nil, Config{
		Interval: time.Millisecond,
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, polls := clip.snapshot()
		return polls >= 3
	}, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], clipboard.ErrUnavailable)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	clip := &scriptedClipboard{}
	w := New(clip, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Run(ctx))
	_, polls := clip.snapshot()
	assert.Zero(t, polls)
}
