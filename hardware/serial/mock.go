package serial

// Mock Porter to test bridge code without a tty.

import (
	"bytes"
	"sync"
)

type MockPort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func NewMockPort() *MockPort { return &MockPort{} }

// Feed queues bytes as if the meter transmitted them.
func (self *MockPort) Feed(b []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()
	_, _ = self.buf.Write(b)
}

func (self *MockPort) Open(path string, baud int) error { return nil }

func (self *MockPort) Available() (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.buf.Len(), nil
}

func (self *MockPort) Read(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.buf.Len() == 0 {
		return 0, nil
	}
	return self.buf.Read(p)
}

func (self *MockPort) ResetRead() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.buf.Reset()
	return nil
}

func (self *MockPort) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.closed = true
	return nil
}
