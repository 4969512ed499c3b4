package radio

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avdberg/p1bridge/log2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssociated(t *testing.T) {
	t.Parallel()

	completed := "bssid=aa:bb:cc:dd:ee:ff\nssid=home\nwpa_state=COMPLETED\nip_address=192.168.1.7\n"
	assert.True(t, parseAssociated(completed))

	scanning := "wpa_state=SCANNING\naddress=02:00:00:00:00:01\n"
	assert.False(t, parseAssociated(scanning))

	assert.False(t, parseAssociated(""))
}

// fake wpa_supplicant on a unixgram socket
func fakeSupplicant(t testing.TB, dir string, handler func(cmd string) string) string {
	path := filepath.Join(dir, "wlan0")
	addr := &net.UnixAddr{Name: path, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		os.Remove(path)
	})
	go func() {
		var buf [4096]byte
		for {
			n, raddr, err := conn.ReadFromUnix(buf[:])
			if err != nil {
				return
			}
			resp := handler(string(buf[:n]))
			_, _ = conn.WriteToUnix([]byte(resp), raddr)
		}
	}()
	return path
}

func TestWPARequestReply(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := fakeSupplicant(t, dir, func(cmd string) string {
		switch {
		case cmd == "STATUS":
			return "wpa_state=COMPLETED\n"
		case cmd == "RECONNECT":
			return "OK\n"
		case strings.HasPrefix(cmd, "ADD_NETWORK"):
			return "0\n"
		case strings.HasPrefix(cmd, "SET_NETWORK"), strings.HasPrefix(cmd, "ENABLE_NETWORK"):
			return "OK\n"
		}
		return "FAIL\n"
	})

	w := NewWPA(log2.NewTest(t, log2.LDebug))
	// unique local socket per test process, avoid clash with parallel tests
	w.local = filepath.Join(dir, "client")
	require.NoError(t, openAt(w, path, w.local))
	defer w.Close()

	ok, err := w.Associated()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, w.Associate())
	require.NoError(t, w.Configure("home", "secret"))
}

// openAt is Open with a caller-chosen local socket path.
func openAt(w *WPA, ctrlPath, local string) error {
	laddr := &net.UnixAddr{Name: local, Net: "unixgram"}
	raddr := &net.UnixAddr{Name: ctrlPath, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		return err
	}
	w.conn = conn
	return nil
}
