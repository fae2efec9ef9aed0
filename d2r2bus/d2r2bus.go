/*
Copyright 2024 Tim St. Pierre
periph conn.Conn on top of github.com/d2r2/go-i2c for boards without a
periph host driver
*/
package d2r2bus

import (
	"fmt"

	"github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"
	"periph.io/x/conn/v3"
)

// device is the part of *i2c.I2C this package uses.
type device interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
	Close() error
}

// Conn is an addressed I²C connection to a single device.
type Conn struct {
	dev  device
	addr uint8
	bus  int
}

// Open opens /dev/i2c-<bus> for the device at addr. d2r2's own logging is
// lowered to warnings, it logs every transfer at debug level otherwise.
func Open(addr uint8, bus int) (*Conn, error) {
	_ = logger.ChangePackageLogLevel("i2c", logger.WarnLevel)
	dev, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, fmt.Errorf("d2r2bus: open i2c-%d %#x: %w", bus, addr, err)
	}
	return &Conn{dev: dev, addr: addr, bus: bus}, nil
}

func (c *Conn) String() string {
	return fmt.Sprintf("i2c-%d(%#x)", c.bus, c.addr)
}

// Tx writes w, then reads into r. Each part is its own transfer.
func (c *Conn) Tx(w, r []byte) error {
	if len(w) != 0 {
		n, err := c.dev.WriteBytes(w)
		if err != nil {
			return fmt.Errorf("d2r2bus: %s: %w", c, err)
		}
		if n != len(w) {
			return fmt.Errorf("d2r2bus: %s: short write %d/%d", c, n, len(w))
		}
	}
	if len(r) != 0 {
		n, err := c.dev.ReadBytes(r)
		if err != nil {
			return fmt.Errorf("d2r2bus: %s: %w", c, err)
		}
		if n != len(r) {
			return fmt.Errorf("d2r2bus: %s: short read %d/%d", c, n, len(r))
		}
	}
	return nil
}

func (c *Conn) Duplex() conn.Duplex {
	return conn.Half
}

func (c *Conn) Close() error {
	return c.dev.Close()
}

var _ conn.Conn = &Conn{}
