/*
Copyright 2024 Tim St. Pierre
Options for HD44780 character displays on a PCF8574 I2C backpack
*/
package lcdi2c

import (
	"errors"
	"time"
)

type Opts struct {
	// The I²C slave address
	I2CAddr uint16
	// Geometry of the display
	Cols uint8
	Rows uint8
	// Request the 5x10 dot font. Only honoured on single line displays.
	LargeFont bool
	// Pause after every character written, 0 for none
	CharDelay time.Duration
	// Reject SetCursor columns past the display width instead of letting
	// the controller wrap the DDRAM address
	StrictColumns bool
	// Sleep implements every delay of the protocol. nil means time.Sleep.
	Sleep func(time.Duration)
}

var DefaultOpts = Opts{
	I2CAddr: 0x27,
	Cols:    16,
	Rows:    2,
}

func (o *Opts) i2cAddr() (uint16, error) {
	switch o.I2CAddr {
	case 0:
		// Default address.
		return 0x27, nil
	case 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27:
		return o.I2CAddr, nil
	case 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f:
		// PCF8574A
		return o.I2CAddr, nil
	default:
		return 0, errors.New("given address not supported by device")
	}
}

func (o *Opts) geometry() error {
	if o.Cols == 0 {
		return errors.New("display needs at least one column")
	}
	if o.Rows == 0 {
		return errors.New("display needs at least one row")
	}
	return nil
}

func (o *Opts) sleeper() func(time.Duration) {
	if o.Sleep == nil {
		return time.Sleep
	}
	return o.Sleep
}
