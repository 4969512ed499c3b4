// Package radio talks to wpa_supplicant over its control socket.
// The bridge only needs two things from the radio: "are we associated"
// and "try to associate again". The wpa_ctrl protocol is one-line text
// requests over a unix datagram socket.
package radio

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avdberg/p1bridge/log2"
	"github.com/juju/errors"
)

const DefaultTimeout = 3 * time.Second

type WPA struct {
	conn    *net.UnixConn
	local   string
	log     *log2.Log
	Timeout time.Duration
}

func NewWPA(log *log2.Log) *WPA {
	return &WPA{log: log, Timeout: DefaultTimeout}
}

// Open connects to the daemon's per-interface socket,
// e.g. /var/run/wpa_supplicant/wlan0.
func (self *WPA) Open(ctrlPath string) error {
	self.local = filepath.Join(os.TempDir(), fmt.Sprintf("p1bridge-wpa-%d", os.Getpid()))
	_ = os.Remove(self.local)
	laddr := &net.UnixAddr{Name: self.local, Net: "unixgram"}
	raddr := &net.UnixAddr{Name: ctrlPath, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		return errors.Annotatef(err, "wpa_ctrl path=%s", ctrlPath)
	}
	self.conn = conn
	self.log.Debugf("radio: wpa_ctrl open path=%s", ctrlPath)
	return nil
}

// Configure registers the network in the running wpa_supplicant.
// Harmless to call when the daemon config already carries the network;
// credentials are never persisted by this side.
func (self *WPA) Configure(ssid, psk string) error {
	if ssid == "" {
		return nil
	}
	id, err := self.request("ADD_NETWORK")
	if err != nil {
		return errors.Annotate(err, "wpa add_network")
	}
	id = strings.TrimSpace(id)
	for _, cmd := range []string{
		fmt.Sprintf("SET_NETWORK %s ssid \"%s\"", id, ssid),
		fmt.Sprintf("SET_NETWORK %s psk \"%s\"", id, psk),
		fmt.Sprintf("ENABLE_NETWORK %s", id),
	} {
		resp, err := self.request(cmd)
		if err != nil {
			return errors.Annotatef(err, "wpa cmd=%s", cmd)
		}
		if !strings.HasPrefix(resp, "OK") {
			return errors.Errorf("wpa cmd=%s response=%s", cmd, strings.TrimSpace(resp))
		}
	}
	return nil
}

func (self *WPA) Associated() (bool, error) {
	resp, err := self.request("STATUS")
	if err != nil {
		return false, errors.Annotate(err, "wpa status")
	}
	ok := parseAssociated(resp)
	self.log.Debugf("radio: associated=%t", ok)
	return ok, nil
}

// Associate kicks the supplicant; actual association completes in
// background and is observed by the caller polling Associated.
func (self *WPA) Associate() error {
	resp, err := self.request("RECONNECT")
	if err != nil {
		return errors.Annotate(err, "wpa reconnect")
	}
	if !strings.HasPrefix(resp, "OK") {
		return errors.Errorf("wpa reconnect response=%s", strings.TrimSpace(resp))
	}
	return nil
}

func (self *WPA) Close() error {
	if self.conn == nil {
		return nil
	}
	err := self.conn.Close()
	self.conn = nil
	_ = os.Remove(self.local)
	return err
}

func (self *WPA) request(cmd string) (string, error) {
	deadline := time.Now().Add(self.Timeout)
	if err := self.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := self.conn.Write([]byte(cmd)); err != nil {
		return "", err
	}
	var buf [4096]byte
	for {
		n, err := self.conn.Read(buf[:])
		if err != nil {
			return "", err
		}
		resp := string(buf[:n])
		// unsolicited event messages start with <priority>
		if strings.HasPrefix(resp, "<") {
			continue
		}
		return resp, nil
	}
}

func parseAssociated(status string) bool {
	for _, line := range strings.Split(status, "\n") {
		if strings.TrimSpace(line) == "wpa_state=COMPLETED" {
			return true
		}
	}
	return false
}
