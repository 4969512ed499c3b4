package bridge

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/status"
)

const DefaultNetworkTimeout = 30 * time.Second

type SessionConfig struct {
	// Address is the fixed host:port of the sink, resolved by dial.
	Address        string
	NetworkTimeout time.Duration
}

// Session owns the TCP connection to the sink. One dial attempt per
// Reconnect call; the forwarding loop calls again next iteration.
type Session struct {
	config     SessionConfig
	status     status.Indicator
	log        *log2.Log
	dial       func(context.Context) (net.Conn, error)
	conn       net.Conn
	connecting int32
	stat       SessionStat
}

func NewSession(config SessionConfig, st status.Indicator, log *log2.Log) *Session {
	if config.NetworkTimeout == 0 {
		config.NetworkTimeout = DefaultNetworkTimeout
	}
	self := &Session{
		config: config,
		status: st,
		log:    log,
	}
	self.dial = func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: self.config.NetworkTimeout}
		return d.DialContext(ctx, "tcp", self.config.Address)
	}
	return self
}

// Ready reports whether the session is open and the peer has not
// reset it. Detection is a zero-deadline read probe: the sink never
// sends meaningful data, so anything received is discarded.
func (self *Session) Ready() bool {
	if self.conn == nil {
		return false
	}
	_ = self.conn.SetReadDeadline(time.Now())
	var p [64]byte
	_, err := self.conn.Read(p[:])
	_ = self.conn.SetReadDeadline(time.Time{})
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	self.log.Infof("session: lost err=%v", err)
	self.closeConn()
	return false
}

func (self *Session) Connecting() bool {
	return atomic.LoadInt32(&self.connecting) == 1
}

// Reconnect makes exactly one connection attempt. Failure is absorbed:
// the status pattern is the only signal, the caller retries later.
func (self *Session) Reconnect(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&self.connecting, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&self.connecting, 0)

	self.closeConn()
	conn, err := self.dial(ctx)
	if err != nil {
		self.stat.ConnErr.Add(1)
		self.log.Errorf("session: connect %s err=%v", self.config.Address, err)
		self.status.Emit(status.EventSessionDown)
		return
	}
	self.conn = conn
	self.stat.Conn.Add(1)
	self.stat.lastConnect.SetNow()
	self.log.Infof("session: connected %s stat=%s", self.config.Address, self.stat.String())
	self.status.Emit(status.EventSessionUp)
}

func (self *Session) Stat() *SessionStat { return &self.stat }

// Write forwards bytes to the sink. A failed write is not retried and
// not surfaced; the meter emits a fresh telegram on its own schedule.
// The connection is dropped so the next Ready check reports it.
func (self *Session) Write(p []byte) {
	if self.conn == nil || len(p) == 0 {
		return
	}
	_ = self.conn.SetWriteDeadline(time.Now().Add(self.config.NetworkTimeout))
	if n, err := self.conn.Write(p); err != nil {
		self.stat.SendErr.Add(1)
		self.log.Errorf("session: write len=%d err=%v", len(p), err)
		self.closeConn()
	} else {
		self.stat.SendBytes.Add(int64(n))
	}
}

func (self *Session) Close() error {
	if self.conn == nil {
		return nil
	}
	err := self.conn.Close()
	self.conn = nil
	return err
}

func (self *Session) closeConn() {
	if self.conn != nil {
		_ = self.conn.Close()
		self.conn = nil
	}
}
