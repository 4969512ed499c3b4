package bridge

// Values are read and modified atomically, but not consistently with
// each other: Conn may already count a connect whose uptime clock has
// not been set yet.

import (
	"expvar"
	"fmt"
	"time"

	"github.com/temoto/atomic_clock"
)

type SessionStat struct {
	Conn      expvar.Int // successful connects
	ConnErr   expvar.Int // refused/timed out dial attempts
	SendBytes expvar.Int
	SendErr   expvar.Int
	DropBytes expvar.Int // staged bytes discarded around reconnects

	lastConnect atomic_clock.Clock
}

// SinceConnect is the age of the current session, 0 before first connect.
func (ss *SessionStat) SinceConnect() time.Duration {
	if ss.lastConnect.IsZero() {
		return 0
	}
	return atomic_clock.Since(&ss.lastConnect)
}

func (ss *SessionStat) String() string {
	return fmt.Sprintf(`{"conn":%d,"conn_err":%d,"send_bytes":%d,"send_err":%d,"drop_bytes":%d}`,
		ss.Conn.Value(), ss.ConnErr.Value(),
		ss.SendBytes.Value(), ss.SendErr.Value(), ss.DropBytes.Value())
}
