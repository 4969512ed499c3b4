// Package tele reports bridge state to a remote MQTT broker.
// It is strictly optional: the forwarding loop works the same with the
// stub, and delivery is best effort. State messages may be lost.
package tele

import (
	"context"
	"sync"

	"github.com/avdberg/p1bridge/log2"
	"github.com/juju/errors"
)

type State byte

const (
	State_Invalid    State = 0
	State_Boot       State = 1
	State_Work       State = 2
	State_LinkDown   State = 3
	State_SinkDown   State = 4
	State_Disconnect State = 5 // published as last will by the broker
)

func (s State) String() string {
	switch s {
	case State_Boot:
		return "boot"
	case State_Work:
		return "work"
	case State_LinkDown:
		return "link-down"
	case State_SinkDown:
		return "sink-down"
	case State_Disconnect:
		return "disconnect"
	}
	return "invalid"
}

type Config struct {
	Enabled        bool   `hcl:"enable"`
	ClientID       string `hcl:"client_id"`
	MqttBroker     string `hcl:"mqtt_broker"`
	MqttPassword   string `hcl:"mqtt_password"`
	KeepaliveSec   int    `hcl:"keepalive_sec"`
	PingTimeoutSec int    `hcl:"ping_timeout_sec"`
	StorePath      string `hcl:"store_path"`
	LogDebug       bool   `hcl:"log_debug"`
}

// Teler contract:
// - Init() fails only with invalid config, network issues are ignored
// - State/Error never block on the network
type Teler interface {
	Init(context.Context, *log2.Log, Config) error
	Close()
	State(State)
	Error(error)
}

type stub struct{}

func (stub) Init(context.Context, *log2.Log, Config) error { return nil }
func (stub) Close()                                        {}
func (stub) State(State)                                   {}
func (stub) Error(error)                                   {}

func NewStub() Teler { return stub{} }

type tele struct {
	sync.Mutex
	config    Config
	log       *log2.Log
	transport Transporter
	current   State
}

func New() Teler { return &tele{} }

// test code sets transport
func NewWithTransporter(trans Transporter) Teler { return &tele{transport: trans} }

func (self *tele) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.config = teleConfig
	self.log = log
	if self.config.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if !self.config.Enabled {
		return nil
	}

	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, log, teleConfig); err != nil {
		return errors.Annotate(err, "tele transport")
	}
	self.State(State_Boot)
	return nil
}

func (self *tele) Close() {
	if self.transport != nil {
		self.transport.CloseTele()
	}
}

// State publishes only transitions, repeated same-state calls are free.
func (self *tele) State(s State) {
	if self.transport == nil || !self.config.Enabled {
		return
	}
	self.Lock()
	defer self.Unlock()
	if s == self.current {
		return
	}
	self.log.Infof("tele: state %s -> %s", self.current, s)
	self.current = s
	_ = self.transport.SendState([]byte{byte(s)})
}

func (self *tele) Error(e error) {
	if self.transport == nil || !self.config.Enabled || e == nil {
		return
	}
	_ = self.transport.SendError([]byte(e.Error()))
}
