package status

import (
	"sync"
	"testing"
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/stretchr/testify/assert"
)

type recordLamp struct {
	mu  sync.Mutex
	seq []bool
}

func (self *recordLamp) Set(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.seq = append(self.seq, on)
	return nil
}

func (self *recordLamp) onCount() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	n := 0
	for _, on := range self.seq {
		if on {
			n++
		}
	}
	return n
}

func (self *recordLamp) last() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.seq) == 0 {
		return false
	}
	return self.seq[len(self.seq)-1]
}

func newTestBlinker(t testing.TB, lamp Lamp) *Blinker {
	b := NewBlinker(lamp, log2.NewTest(t, log2.LDebug))
	b.PulseOn = time.Microsecond
	b.PulseOff = time.Microsecond
	b.Gap = time.Microsecond
	return b
}

func TestBlinkerPatterns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		event  Event
		pulses int
		idleOn bool
	}{
		{EventLinkConnecting, 1, false},
		{EventLinkUp, 6, true},
		{EventSessionUp, 6, true},
		{EventSessionDown, 5, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.event.String(), func(t *testing.T) {
			t.Parallel()
			lamp := &recordLamp{}
			b := newTestBlinker(t, lamp)
			b.Emit(c.event)
			time.Sleep(50 * time.Millisecond)
			b.Close()
			expect := c.pulses
			if c.idleOn {
				expect++ // idle level set after the pattern
			}
			assert.Equal(t, expect, lamp.onCount())
		})
	}
}

func TestBlinkerFaultHoldsOff(t *testing.T) {
	t.Parallel()

	lamp := &recordLamp{}
	b := newTestBlinker(t, lamp)
	b.Emit(EventLinkUp)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, lamp.last())

	b.Emit(EventFault)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, lamp.last())
	b.Close()
}

func TestBlinkerEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	b := NewBlinker(&recordLamp{}, nil)
	// worker is busy with the first pattern at production timings,
	// the rest must drop instead of blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Emit(EventSessionDown)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked")
	}
	b.Close()
}
