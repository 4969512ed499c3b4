package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/status"
	"github.com/juju/errors"
)

const DefaultLinkPollDelay = 1 * time.Second

// Radio is the wireless association layer. Associate only kicks the
// radio; the caller polls Associated until it reports true.
type Radio interface {
	Associated() (bool, error)
	Associate() error
}

type LinkConfig struct {
	// PollDelay between association checks while reconnecting.
	PollDelay time.Duration
	// Timeout bounds a single Reconnect call. Zero means retry forever,
	// which fits a device with no other job while offline.
	Timeout time.Duration
}

// Link owns association with the wireless network.
type Link struct {
	radio      Radio
	status     status.Indicator
	log        *log2.Log
	config     LinkConfig
	connecting int32 // reentrancy guard, Reconnect blocks anyway
}

func NewLink(radio Radio, st status.Indicator, log *log2.Log, config LinkConfig) *Link {
	if config.PollDelay == 0 {
		config.PollDelay = DefaultLinkPollDelay
	}
	return &Link{
		radio:  radio,
		status: st,
		log:    log,
		config: config,
	}
}

func (self *Link) Ready() bool {
	ok, err := self.radio.Associated()
	if err != nil {
		self.log.Errorf("link: query radio err=%v", err)
		return false
	}
	return ok
}

func (self *Link) Connecting() bool {
	return atomic.LoadInt32(&self.connecting) == 1
}

// Reconnect blocks until the radio reports association.
// Association failure is indistinguishable from still-trying; the only
// error paths out are a configured Timeout or context cancel.
func (self *Link) Reconnect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&self.connecting, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&self.connecting, 0)

	self.status.Emit(status.EventLinkConnecting)
	self.log.Infof("link: associating")
	if err := self.radio.Associate(); err != nil {
		// not fatal, radio may associate on its own
		self.log.Errorf("link: associate err=%v", err)
	}

	deadline := time.Time{}
	if self.config.Timeout != 0 {
		deadline = time.Now().Add(self.config.Timeout)
	}
	for {
		ok, err := self.radio.Associated()
		if err != nil {
			self.log.Errorf("link: query radio err=%v", err)
		} else if ok {
			self.log.Infof("link: associated")
			self.status.Emit(status.EventLinkUp)
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return errors.Timeoutf("link associate timeout=%s", self.config.Timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(self.config.PollDelay):
		}
	}
}
