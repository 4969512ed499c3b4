package bridge

// Shared test doubles: scripted radio, recording indicator, pipe sink.

import (
	"context"
	"net"
	"sync"

	"github.com/avdberg/p1bridge/status"
	"github.com/juju/errors"
)

type fakeRadio struct {
	mu             sync.Mutex
	downFor        int // Associated() returns false this many times
	associateCalls int
	statusCalls    int
}

func (self *fakeRadio) Associated() (bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.statusCalls++
	if self.downFor > 0 {
		self.downFor--
		return false, nil
	}
	return true, nil
}

func (self *fakeRadio) Associate() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.associateCalls++
	return nil
}

func (self *fakeRadio) associates() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.associateCalls
}

func (self *fakeRadio) setDown(n int) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.downFor = n
}

type recordIndicator struct {
	mu     sync.Mutex
	events []status.Event
}

func (self *recordIndicator) Emit(e status.Event) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = append(self.events, e)
}

func (self *recordIndicator) Close() {}

func (self *recordIndicator) count(e status.Event) int {
	self.mu.Lock()
	defer self.mu.Unlock()
	n := 0
	for _, x := range self.events {
		if x == e {
			n++
		}
	}
	return n
}

// pipeSink hands out net.Pipe connections and drains the server side.
type pipeSink struct {
	mu        sync.Mutex
	received  []byte
	dialCount int
	failFirst int // this many leading dial attempts are refused
	server    net.Conn
}

func (self *pipeSink) dial(ctx context.Context) (net.Conn, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.dialCount++
	if self.dialCount <= self.failFirst {
		return nil, errors.Errorf("connection refused")
	}
	client, server := net.Pipe()
	self.server = server
	go self.drain(server)
	return client, nil
}

func (self *pipeSink) drain(c net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := c.Read(buf)
		if n > 0 {
			self.mu.Lock()
			self.received = append(self.received, buf[:n]...)
			self.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (self *pipeSink) dials() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.dialCount
}

func (self *pipeSink) bytes() []byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]byte(nil), self.received...)
}

// resetPeer closes the server end, simulating a peer reset.
func (self *pipeSink) resetPeer() {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.server != nil {
		_ = self.server.Close()
		self.server = nil
	}
}
