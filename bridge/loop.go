// Package bridge moves raw DSMR telegram bytes from the meter's
// serial port to a remote TCP sink, surviving both radio and transport
// drops. One single-threaded loop drives two polled state machines:
// Link (wireless association) first, Session (TCP) second, forwarding
// only when both report ready.
package bridge

import (
	"context"
	"time"

	"github.com/avdberg/p1bridge/hardware/serial"
	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/status"
	"github.com/avdberg/p1bridge/tele"
	"github.com/temoto/alive/v2"
)

const (
	// DSMR 5.0 telegram fits with margin
	DefaultBufferSize = 8192
	DefaultPollDelay  = 100 * time.Millisecond
)

type Config struct {
	BufferSize int
	PollDelay  time.Duration
}

// Bridge owns the forward buffer; nothing else touches it.
type Bridge struct {
	link    *Link
	session *Session
	port    serial.Porter
	status  status.Indicator
	tele    tele.Teler
	log     *log2.Log
	config  Config
	buf     []byte
	pending int
}

func New(link *Link, session *Session, port serial.Porter, st status.Indicator, teler tele.Teler, log *log2.Log, config Config) *Bridge {
	if config.BufferSize == 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.PollDelay == 0 {
		config.PollDelay = DefaultPollDelay
	}
	if teler == nil {
		teler = tele.NewStub()
	}
	return &Bridge{
		link:    link,
		session: session,
		port:    port,
		status:  st,
		tele:    teler,
		log:     log,
		config:  config,
		buf:     make([]byte, config.BufferSize),
	}
}

// Step is one loop iteration. Link health is always checked and
// repaired before session health, session health before forwarding:
// a session without a link is not worth dialing.
func (self *Bridge) Step(ctx context.Context) {
	if !self.link.Ready() && !self.link.Connecting() {
		self.status.Emit(status.EventFault)
		self.tele.State(tele.State_LinkDown)
		if err := self.link.Reconnect(ctx); err != nil {
			self.log.Errorf("link reconnect err=%v", err)
		}
		self.discardBuffer()
		return
	}

	if !self.session.Ready() && !self.session.Connecting() {
		self.status.Emit(status.EventFault)
		self.tele.State(tele.State_SinkDown)
		self.session.Reconnect(ctx)
		self.discardBuffer()
		return
	}

	self.tele.State(tele.State_Work)
	self.forward()
}

// forward drains at most one buffer worth of serial input. Bytes past
// the buffer stay queued in the kernel for the next iteration. The
// buffer is cleared whether or not the write went through: a telegram
// torn by a disconnect is dropped, the meter sends a fresh one soon.
func (self *Bridge) forward() {
	avail, err := self.port.Available()
	if err != nil {
		self.log.Errorf("serial available err=%v", err)
		self.tele.Error(err)
		return
	}
	if avail == 0 {
		return
	}
	n, err := self.port.Read(self.buf)
	if err != nil {
		self.log.Errorf("serial read err=%v", err)
		self.tele.Error(err)
		self.clearBuffer()
		return
	}
	self.pending = n
	if n > 0 {
		self.session.Write(self.buf[:n])
	}
	self.clearBuffer()
}

// discardBuffer accounts staged bytes lost to a reconnect, then clears.
func (self *Bridge) discardBuffer() {
	if self.pending > 0 {
		self.session.Stat().DropBytes.Add(int64(self.pending))
		self.log.Debugf("bridge: drop staged=%d", self.pending)
	}
	self.clearBuffer()
}

func (self *Bridge) clearBuffer() {
	for i := 0; i < self.pending; i++ {
		self.buf[i] = 0
	}
	self.pending = 0
}

// Run drives Step until the alive is stopped.
func (self *Bridge) Run(ctx context.Context, a *alive.Alive) {
	stopch := a.StopChan()
	self.log.Infof("bridge: running")
	for a.IsRunning() {
		self.Step(ctx)
		select {
		case <-stopch:
			return

		case <-ctx.Done():
			return

		case <-time.After(self.config.PollDelay):
		}
	}
}
