// p1bridge forwards raw DSMR telegrams from the meter's P1 serial
// port to a remote TCP sink, reconnecting both the wireless link and
// the TCP session on its own forever.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/avdberg/p1bridge/bridge"
	"github.com/avdberg/p1bridge/helpers"
	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/state"
	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
)

var log = log2.NewStderr(log2.LDebug)

func main() {
	flagConfig := flag.String("config", "p1bridge.hcl", "")
	flag.Parse()

	logFlags := log2.LInteractiveFlags
	if sdnotify("READY=0\nSTATUS=init\n") {
		// under systemd assume journal logging, remove timestamp
		logFlags = log2.LServiceFlags
	}
	log.SetFlags(logFlags)
	log.Debugf("hello")

	ctx, g := state.NewContext(log)
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	log.Debugf("config=%+v", config)
	g.MustInit(ctx, config)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		g.Log.Infof("stop signal")
		g.Alive.Stop()
	}()

	link := bridge.NewLink(g.Hardware.Radio, g.Status, g.Log, bridge.LinkConfig{
		PollDelay: helpers.IntMillisecondDefault(config.Link.PollDelayMs, bridge.DefaultLinkPollDelay),
		Timeout:   helpers.IntSecondDefault(config.Link.TimeoutSec, 0),
	})
	session := bridge.NewSession(bridge.SessionConfig{
		Address:        config.Sink.Address,
		NetworkTimeout: helpers.IntSecondDefault(config.Sink.NetworkTimeoutSec, bridge.DefaultNetworkTimeout),
	}, g.Status, g.Log)
	b := bridge.New(link, session, g.Hardware.Port, g.Status, g.Tele, g.Log, bridge.Config{
		BufferSize: config.Bridge.BufferSize,
		PollDelay:  helpers.IntMillisecondDefault(config.Bridge.PollDelayMs, bridge.DefaultPollDelay),
	})

	// acquire the link first, then one session attempt, then loop
	if err := link.Reconnect(ctx); err != nil {
		g.Error(errors.Annotate(err, "initial link"))
	}
	session.Reconnect(ctx)

	sdnotify(daemon.SdNotifyReady)
	log.Infof("init complete, forwarding")

	b.Run(ctx, g.Alive)
	g.Stop()
	_ = session.Close()
	log.Infof("goodbye")
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
