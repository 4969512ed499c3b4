package state

import (
	"context"
	"fmt"

	"github.com/avdberg/p1bridge/bridge"
	"github.com/avdberg/p1bridge/hardware/led"
	"github.com/avdberg/p1bridge/hardware/radio"
	"github.com/avdberg/p1bridge/hardware/serial"
	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/status"
	"github.com/avdberg/p1bridge/tele"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

// Global is the owned context object of the whole process: one device,
// one link, one session. No package-level mutable state anywhere.
type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Log      *log2.Log
	Tele     tele.Teler
	Status   status.Indicator
	Hardware struct {
		Port  serial.Porter
		Radio bridge.Radio
	}
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  tele.NewStub(),
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, ContextKey, g) //nolint:staticcheck
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If Init fails, consider Global is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg

	if g.Config.Sink.Address == "" {
		return errors.NotValidf("config: sink.address empty")
	}
	if g.Config.Hardware.Serial.Device == "" {
		return errors.NotValidf("config: hardware.serial.device empty")
	}
	if g.Config.Hardware.Serial.Baud == 0 {
		g.Config.Hardware.Serial.Baud = 115200
		g.Log.Debugf("config: hardware.serial.baud=0 changed=%d", g.Config.Hardware.Serial.Baud)
	}

	// tele is the remote error reporting mechanism, init before the rest
	g.Tele = tele.New()
	if err := g.Tele.Init(ctx, g.Log, g.Config.Tele); err != nil {
		return errors.Annotate(err, "tele init")
	}

	if err := g.initStatus(); err != nil {
		return errors.Trace(err)
	}

	if err := g.initRadio(); err != nil {
		return errors.Trace(err)
	}

	if g.Hardware.Port == nil { // test code presets a mock
		port := serial.NewFilePort()
		if err := port.Open(g.Config.Hardware.Serial.Device, g.Config.Hardware.Serial.Baud); err != nil {
			return errors.Annotate(err, "serial init")
		}
		g.Hardware.Port = port
	}

	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
		g.Tele.Error(err)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
	g.Alive.Wait()
	if g.Hardware.Port != nil {
		_ = g.Hardware.Port.Close()
	}
	if g.Status != nil {
		g.Status.Close()
	}
	g.Tele.State(tele.State_Disconnect)
	g.Tele.Close()
}

func (g *Global) initStatus() error {
	if g.Status != nil {
		return nil
	}
	if !g.Config.Hardware.Led.Enable {
		g.Status = status.NewStub()
		return nil
	}
	lamp := &led.LED{}
	err := lamp.Init(g.Config.Hardware.Led.PinChip, g.Config.Hardware.Led.Pin, g.Config.Hardware.Led.ActiveLow)
	if err != nil {
		return errors.Annotate(err, "led init")
	}
	g.Status = status.NewBlinker(lamp, g.Log)
	return nil
}

func (g *Global) initRadio() error {
	if g.Hardware.Radio != nil { // test code presets a mock
		return nil
	}
	w := radio.NewWPA(g.Log)
	if err := w.Open(g.Config.Hardware.Radio.CtrlPath); err != nil {
		return errors.Annotate(err, "radio init")
	}
	if err := w.Configure(g.Config.Link.SSID, g.Config.Link.Password); err != nil {
		return errors.Annotate(err, "radio configure")
	}
	g.Hardware.Radio = w
	return nil
}
