package chat

import "sync"

// DefaultScrollThreshold is how close to the bottom (px) still counts as "at bottom"
const DefaultScrollThreshold = 150

// ScrollTracker decides whether new messages should scroll the view. It only
// auto-scrolls when the reader was already near the bottom; otherwise it
// offers a "scroll to bottom" button.
type ScrollTracker struct {
	mu         sync.Mutex
	threshold  float64
	autoScroll bool
	showButton bool
}

func NewScrollTracker(threshold float64) *ScrollTracker {
	return &ScrollTracker{threshold: threshold, autoScroll: true}
}

// OnScroll records the viewport position after the user scrolls
func (t *ScrollTracker) OnScroll(scrollHeight, scrollTop, clientHeight float64) {
	atBottom := scrollHeight-scrollTop-clientHeight < t.threshold

	t.mu.Lock()
	t.autoScroll = atBottom
	t.showButton = !atBottom
	t.mu.Unlock()
}

// MessagesChanged reports whether the view should smooth-scroll to the newest message
func (t *ScrollTracker) MessagesChanged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.autoScroll
}

// ScrollToBottom handles the button: jump down and resume auto-scrolling
func (t *ScrollTracker) ScrollToBottom() {
	t.mu.Lock()
	t.autoScroll = true
	t.showButton = false
	t.mu.Unlock()
}

// ShowScrollButton reports whether the "scroll to bottom" button is visible
func (t *ScrollTracker) ShowScrollButton() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.showButton
}
