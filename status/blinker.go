package status

import (
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/temoto/alive/v2"
)

const (
	DefaultPulseOn  = 300 * time.Millisecond
	DefaultPulseOff = 300 * time.Millisecond
	DefaultGap      = 1 * time.Second
)

type Lamp interface {
	Set(on bool) error
}

// pulse patterns: 1 pulse link connect start, 6 pulses link up, three double
// pulses session up, 5 pulses session down. Between patterns the
// lamp holds solid on while the link is believed healthy.
type pattern struct {
	bursts []int // pulses per burst, gap after each burst
	idleOn bool  // lamp level after the pattern
	skip   bool  // no pulses, just set idle level
}

func patternOf(e Event, idleOn bool) pattern {
	switch e {
	case EventLinkConnecting:
		return pattern{bursts: []int{1}, idleOn: false}
	case EventLinkUp:
		return pattern{bursts: []int{6}, idleOn: true}
	case EventSessionUp:
		return pattern{bursts: []int{2, 2, 2}, idleOn: true}
	case EventSessionDown:
		return pattern{bursts: []int{5}, idleOn: idleOn}
	case EventFault:
		return pattern{skip: true, idleOn: false}
	}
	return pattern{skip: true, idleOn: idleOn}
}

// Blinker renders Events on a Lamp in its own goroutine.
// Emit never blocks; events are dropped when the queue is full.
type Blinker struct {
	alive  *alive.Alive
	ch     chan Event
	lamp   Lamp
	log    *log2.Log
	idleOn bool

	PulseOn  time.Duration
	PulseOff time.Duration
	Gap      time.Duration
}

func NewBlinker(lamp Lamp, log *log2.Log) *Blinker {
	self := &Blinker{
		alive:    alive.NewAlive(),
		ch:       make(chan Event, 8),
		lamp:     lamp,
		log:      log,
		PulseOn:  DefaultPulseOn,
		PulseOff: DefaultPulseOff,
		Gap:      DefaultGap,
	}
	self.alive.Add(1)
	go self.worker()
	return self
}

func (self *Blinker) Emit(e Event) {
	select {
	case self.ch <- e:
	default:
		self.log.Debugf("status: queue full drop event=%s", e)
	}
}

func (self *Blinker) Close() {
	self.alive.Stop()
	self.alive.Wait()
}

func (self *Blinker) worker() {
	defer self.alive.Done()
	stopch := self.alive.StopChan()
	for {
		select {
		case e := <-self.ch:
			self.render(e)

		case <-stopch:
			_ = self.lamp.Set(false)
			return
		}
	}
}

func (self *Blinker) render(e Event) {
	self.log.Debugf("status: event=%s", e)
	p := patternOf(e, self.idleOn)
	self.idleOn = p.idleOn
	if !p.skip {
		for _, count := range p.bursts {
			for i := 0; i < count; i++ {
				_ = self.lamp.Set(true)
				if !self.sleep(self.PulseOn) {
					return
				}
				_ = self.lamp.Set(false)
				if !self.sleep(self.PulseOff) {
					return
				}
			}
			if !self.sleep(self.Gap) {
				return
			}
		}
	}
	_ = self.lamp.Set(self.idleOn)
}

func (self *Blinker) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true

	case <-self.alive.StopChan():
		return false
	}
}
