// Package led drives the status light through the Linux GPIO
// character device. Boards that wire the LED to pull the pin low set
// ActiveLow to invert the drive level.
package led

import (
	"strconv"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
)

type LED struct {
	chip      gpio.Chiper
	lines     gpio.Lineser
	set       gpio.LineSetFunc
	ActiveLow bool
}

func (self *LED) Init(chipName, pin string, activeLow bool) error {
	var err error
	self.chip, err = gpio.Open(chipName, "p1bridge-led")
	if err != nil {
		return errors.Annotatef(err, "led chip=%s", chipName)
	}
	n, err := strconv.ParseUint(pin, 10, 32)
	if err != nil {
		return errors.Annotatef(err, "led pin=%s", pin)
	}
	self.lines, err = self.chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, "p1bridge-led", uint32(n))
	if err != nil {
		return errors.Annotatef(err, "led pin=%s", pin)
	}
	self.set = self.lines.SetFunc(uint32(n))
	self.ActiveLow = activeLow
	return self.Set(false)
}

func (self *LED) Set(on bool) error {
	b := byte(0)
	if on != self.ActiveLow {
		b = 1
	}
	self.set(b)
	return self.lines.Flush()
}

func (self *LED) Close() error {
	if self.lines == nil {
		return nil
	}
	_ = self.Set(false)
	_ = self.lines.Close()
	self.lines = nil
	return self.chip.Close()
}
