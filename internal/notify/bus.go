// Package notify implements the ephemeral user-facing message bus: the
// latest message per channel plus an auto-hide timer, no queueing.
package notify

import (
	"sync"
	"time"
)

// Channel separates the two message surfaces the UI renders.
type Channel string

const (
	// ChannelNotice carries system notices ("Added to your cart").
	ChannelNotice Channel = "notice"
	// ChannelToast carries lightweight confirmations ("Added to wishlist").
	ChannelToast Channel = "toast"
)

const (
	noticeTTL = 4 * time.Second
	toastTTL  = 3 * time.Second
)

type Message struct {
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

// Bus keeps at most one visible message per channel. A new Publish replaces
// the pending auto-hide timer; Dismiss hides the message immediately.
type Bus struct {
	mu      sync.Mutex
	ttl     map[Channel]time.Duration
	current map[Channel]Message
	timers  map[Channel]*time.Timer
}

func NewBus() *Bus {
	return NewBusWithTTL(noticeTTL, toastTTL)
}

// NewBusWithTTL overrides the display durations. Used by tests.
func NewBusWithTTL(notice, toast time.Duration) *Bus {
	return &Bus{
		ttl: map[Channel]time.Duration{
			ChannelNotice: notice,
			ChannelToast:  toast,
		},
		current: make(map[Channel]Message),
		timers:  make(map[Channel]*time.Timer),
	}
}

func (b *Bus) Publish(ch Channel, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.timers[ch]; ok {
		t.Stop()
	}
	b.current[ch] = Message{Text: text, PublishedAt: time.Now()}

	ttl, ok := b.ttl[ch]
	if !ok {
		ttl = noticeTTL
	}
	b.timers[ch] = time.AfterFunc(ttl, func() {
		b.expire(ch, text)
	})
}

// Dismiss hides the channel's message before its timer fires.
func (b *Bus) Dismiss(ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.timers[ch]; ok {
		t.Stop()
		delete(b.timers, ch)
	}
	delete(b.current, ch)
}

// Current returns the visible message for the channel, if any.
func (b *Bus) Current(ch Channel) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.current[ch]
	return m, ok
}

// expire removes the message only if it is still the one the timer was
// armed for; a later Publish owns its own timer.
func (b *Bus) expire(ch Channel, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.current[ch]; ok && m.Text == text {
		delete(b.current, ch)
		delete(b.timers, ch)
	}
}
