// Package serial reads the meter's P1 telemetry port.
// DSMR 5.0 pushes a full telegram every second at 115200 8N1;
// older meters run 9600. The port is strictly read-only here.
package serial

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

const (
	cBOTHER   = 0x1000
	cFIONREAD = 0x541b
	cNCCS     = 19
	cTCSETSF2 = 0x402c542d
)

// Porter is the byte stream source of the bridge.
// Available reports bytes buffered by the kernel without consuming them.
type Porter interface {
	Open(path string, baud int) error
	Available() (int, error)
	Read(p []byte) (int, error)
	ResetRead() error
	Close() error
}

type cc_t byte
type speed_t uint32
type tcflag_t uint32
type termios2 struct {
	c_iflag  tcflag_t    // input mode flags
	c_oflag  tcflag_t    // output mode flags
	c_cflag  tcflag_t    // control mode flags
	c_lflag  tcflag_t    // local mode flags
	c_line   cc_t        // line discipline
	c_cc     [cNCCS]cc_t // control characters
	c_ispeed speed_t     // input speed
	c_ospeed speed_t     // output speed
}

type filePort struct {
	f  *os.File
	t2 termios2
}

func NewFilePort() *filePort { return &filePort{} }

func (self *filePort) Open(path string, baud int) (err error) {
	if self.f != nil {
		self.f.Close()
	}
	self.f, err = os.OpenFile(path, syscall.O_RDONLY|syscall.O_NOCTTY, 0600)
	if err != nil {
		return errors.Annotatef(err, "serial open path=%s", path)
	}
	err = io_reset_termios(self.f.Fd(), &self.t2, baud)
	if err != nil {
		self.f.Close()
		self.f = nil
		return errors.Trace(err)
	}
	return nil
}

func (self *filePort) Available() (int, error) {
	var out int
	err := ioctl(self.f.Fd(), uintptr(cFIONREAD), uintptr(unsafe.Pointer(&out)))
	return out, err
}

// Read returns whatever the kernel has buffered, up to len(p), without
// waiting for more. VMIN=0 VTIME=0 makes an empty read return 0.
func (self *filePort) Read(p []byte) (int, error) {
	return syscall.Read(int(self.f.Fd()), p)
}

func (self *filePort) ResetRead() error {
	// flush pending input
	return io_tcsetsf2(self.f.Fd(), &self.t2)
}

func (self *filePort) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f = nil
	return err
}

func ioctl(fd uintptr, op, arg uintptr) (err error) {
	r, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, op, arg)
	if errno != 0 {
		err = os.NewSyscallError("SYS_IOCTL", errno)
	} else if r != 0 {
		err = errors.New("unknown error from SYS_IOCTL")
	}
	return err
}

func speedOf(baud int) (speed_t, error) {
	switch baud {
	case 9600:
		return speed_t(unix.B9600), nil
	case 19200:
		return speed_t(unix.B19200), nil
	case 38400:
		return speed_t(unix.B38400), nil
	case 57600:
		return speed_t(unix.B57600), nil
	case 115200:
		return speed_t(unix.B115200), nil
	}
	return 0, errors.NotSupportedf("serial baud=%d", baud)
}

func io_reset_termios(fd uintptr, t2 *termios2, baud int) error {
	speed, err := speedOf(baud)
	if err != nil {
		return err
	}
	// raw 8N1, no flow control, receive only
	*t2 = termios2{
		c_iflag:  unix.IGNBRK,
		c_cflag:  syscall.CLOCAL | syscall.CREAD | syscall.CS8,
		c_ispeed: speed,
		c_ospeed: speed,
	}
	t2.c_cc[syscall.VMIN] = 0
	t2.c_cc[syscall.VTIME] = 0
	return io_tcsetsf2(fd, t2)
}

// flush input and output
func io_tcsetsf2(fd uintptr, t2 *termios2) error {
	return ioctl(fd, uintptr(cTCSETSF2), uintptr(unsafe.Pointer(t2)))
}
