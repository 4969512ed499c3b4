package tele

import (
	"context"
	"sync"

	"github.com/avdberg/p1bridge/log2"
)

// MockTransport records payloads instead of talking to a broker.
type MockTransport struct {
	mu     sync.Mutex
	States [][]byte
	Errors [][]byte
	closed bool
}

func (self *MockTransport) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	return nil
}

func (self *MockTransport) CloseTele() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.closed = true
}

func (self *MockTransport) SendState(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.States = append(self.States, payload)
	return true
}

func (self *MockTransport) SendError(payload []byte) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Errors = append(self.Errors, payload)
	return true
}

func (self *MockTransport) StateLog() []State {
	self.mu.Lock()
	defer self.mu.Unlock()
	ss := make([]State, 0, len(self.States))
	for _, p := range self.States {
		if len(p) == 1 {
			ss = append(ss, State(p[0]))
		}
	}
	return ss
}
