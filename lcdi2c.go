/*
Copyright 2024 Tim St. Pierre
Controls an HD44780 character LCD through a PCF8574 I2C backpack
Thanks to Dave Cheney for figuring out the registers!
*/
package lcdi2c

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	// Commands
	CMD_Clear_Display        = 0x01
	CMD_Return_Home          = 0x02
	CMD_Entry_Mode           = 0x04
	CMD_Display_Control      = 0x08
	CMD_Cursor_Display_Shift = 0x10
	CMD_Function_Set         = 0x20
	CMD_CGRAM_Set            = 0x40
	CMD_DDRAM_Set            = 0x80

	// Options
	OPT_Entry_Left     = 0x02 // CMD_Entry_Mode 0 = right to left
	OPT_Entry_Shift    = 0x01 // CMD_Entry_Mode 0 = no autoscroll
	OPT_Enable_Display = 0x04 // CMD_Display_Control
	OPT_Enable_Cursor  = 0x02 // CMD_Display_Control
	OPT_Enable_Blink   = 0x01 // CMD_Display_Control
	OPT_Display_Shift  = 0x08 // CMD_Cursor_Display_Shift 0 = move cursor
	OPT_Shift_Right    = 0x04 // CMD_Cursor_Display_Shift 0 = Left
	OPT_8_Bit          = 0x10 // CMD_Function_Set 0 = 4 bit
	OPT_2_Lines        = 0x08 // CMD_Function_Set 0 = 1 line
	OPT_5x10_Dots      = 0x04 // CMD_Function_Set 0 = 5x8 dots

	// Pins
	RS        = 0
	WR        = 1
	EN        = 2
	BACKLIGHT = 3
	D4        = 4
	D5        = 5
	D6        = 6
	D7        = 7
)

// Datasheet timings. The minimums are in the comments, the values used
// carry a margin and must not be shortened.
const (
	powerOnDelay    = 50 * time.Millisecond   // >40ms after Vcc rises
	expanderSettle  = 1000 * time.Millisecond // after resetting the expander
	resetNibbleWait = 4500 * time.Microsecond // >4.1ms
	lastResetWait   = 150 * time.Microsecond  // >100us
	slowCommandWait = 2000 * time.Microsecond // clear and home >1.52ms
	enablePulse     = 1 * time.Microsecond    // >450ns
	commandSettle   = 50 * time.Microsecond   // >37us
)

// ErrColumnRange is returned by SetCursor when Opts.StrictColumns is set and
// the column is past the display width.
var ErrColumnRange = errors.New("lcdi2c: column out of range")

// Direction is the way the display window or cursor moves.
type Direction bool

const (
	Left  Direction = false
	Right Direction = true
)

func (d Direction) String() string {
	if d == Right {
		return "right"
	}
	return "left"
}

type writeMode byte

const (
	modeCommand writeMode = 0
	modeData    writeMode = 1 << RS
)

// Dev is one display. Every method issues blocking bus transactions and a
// Dev must not be used from more than one goroutine at a time.
type Dev struct {
	c          conn.Conn
	opts       Opts
	sleep      func(time.Duration)
	backlight  byte
	function   byte
	control    byte
	entryMode  byte
	rowOffsets [4]byte
}

func (d *Dev) String() string {
	return fmt.Sprintf("lcdi2c{%s}", d.c)
}

// NewI2C returns a new device that communicates over I²C
//
// Use default options if nil is used. No bus traffic happens until Begin.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr, err := opts.i2cAddr()
	if err != nil {
		return nil, fmt.Errorf("lcdi2c %x: %v", opts.I2CAddr, err)
	}
	o := *opts
	o.I2CAddr = addr
	return New(&i2c.Dev{Bus: b, Addr: addr}, &o)
}

// New returns a device writing to an already addressed connection.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.geometry(); err != nil {
		return nil, fmt.Errorf("lcdi2c: %v", err)
	}
	return &Dev{
		c:         c,
		opts:      *opts,
		sleep:     opts.sleeper(),
		backlight: pinInterpret(BACKLIGHT, 0, true),
	}, nil
}

// Begin runs the power-on reset sequence and leaves the display on, cleared,
// with the cursor hidden at home and text flowing left to right.
func (d *Dev) Begin() error {
	d.function = 0
	if d.opts.Rows > 1 {
		d.function |= OPT_2_Lines
	}
	// Only some single line modules have the taller font.
	if d.opts.LargeFont && d.opts.Rows == 1 {
		d.function |= OPT_5x10_Dots
	}
	cols := d.opts.Cols
	d.rowOffsets = [4]byte{0x00, 0x40, 0x00 + cols, 0x40 + cols}

	d.sleep(powerOnDelay)

	// RS and R/W low, keep the backlight as configured
	if err := d.write8bits(d.backlight); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	d.sleep(expanderSettle)

	// HD44780 datasheet figure 24: the controller may be in 8 bit mode or
	// halfway through a 4 bit transfer, three 0x3 nibbles bring it to 8 bit.
	for _, wait := range []time.Duration{resetNibbleWait, resetNibbleWait, lastResetWait} {
		if err := d.write4bits(0x03 << 4); err != nil {
			return fmt.Errorf("lcdi2c: begin: %w", err)
		}
		d.sleep(wait)
	}
	if err := d.write4bits(0x02 << 4); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}

	if err := d.command(CMD_Function_Set | d.function); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	d.control = OPT_Enable_Display
	if err := d.writeDisplayControl(); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	if err := d.Clear(); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	d.entryMode = OPT_Entry_Left
	if err := d.writeEntryMode(); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	if err := d.Home(); err != nil {
		return fmt.Errorf("lcdi2c: begin: %w", err)
	}
	log.WithField("dev", d.String()).Debugf("initialised %dx%d display", d.opts.Cols, d.opts.Rows)
	return nil
}

// Halt clears the screen and turns off the backlight.
func (d *Dev) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	return d.Backlight(false)
}

func (d *Dev) Clear() error {
	if err := d.command(CMD_Clear_Display); err != nil {
		return err
	}
	d.sleep(slowCommandWait)
	return nil
}

func (d *Dev) Home() error {
	if err := d.command(CMD_Return_Home); err != nil {
		return err
	}
	d.sleep(slowCommandWait)
	return nil
}

// Backlight is not a controller command: the bit rides along with every byte
// sent to the expander. An empty byte is written so the change shows now.
func (d *Dev) Backlight(on bool) error {
	d.backlight = pinInterpret(BACKLIGHT, 0, on)
	log.Debugf("backlight %t", on)
	return d.write8bits(0)
}

func (d *Dev) Display(on bool) error {
	d.control = flag(d.control, OPT_Enable_Display, on)
	return d.writeDisplayControl()
}

func (d *Dev) Cursor(on bool) error {
	d.control = flag(d.control, OPT_Enable_Cursor, on)
	return d.writeDisplayControl()
}

func (d *Dev) Blink(on bool) error {
	d.control = flag(d.control, OPT_Enable_Blink, on)
	return d.writeDisplayControl()
}

func (d *Dev) TextDirection(leftToRight bool) error {
	d.entryMode = flag(d.entryMode, OPT_Entry_Left, leftToRight)
	return d.writeEntryMode()
}

// Autoscroll shifts the display on every character written, so text appears
// right justified at the cursor.
func (d *Dev) Autoscroll(on bool) error {
	d.entryMode = flag(d.entryMode, OPT_Entry_Shift, on)
	return d.writeEntryMode()
}

// Scroll moves the visible window by one position without touching DDRAM.
func (d *Dev) Scroll(dir Direction) error {
	option := byte(CMD_Cursor_Display_Shift | OPT_Display_Shift)
	if dir == Right {
		option |= OPT_Shift_Right
	}
	return d.command(option)
}

// MoveCursor moves the cursor by one position, leaving the display in place.
func (d *Dev) MoveCursor(dir Direction) error {
	option := byte(CMD_Cursor_Display_Shift)
	if dir == Right {
		option |= OPT_Shift_Right
	}
	return d.command(option)
}

// SetCursor moves to column col of row row, both zero based. Rows past the
// end are clamped to the last one. Columns are not checked unless
// Opts.StrictColumns is set: the controller wraps the DDRAM address itself.
func (d *Dev) SetCursor(col, row byte) error {
	if d.opts.StrictColumns && col >= d.opts.Cols {
		return fmt.Errorf("%w: %d on a %d column display", ErrColumnRange, col, d.opts.Cols)
	}
	if int(row) >= len(d.rowOffsets) {
		row = byte(len(d.rowOffsets) - 1)
	}
	if row >= d.opts.Rows {
		row = d.opts.Rows - 1
	}
	return d.command(CMD_DDRAM_Set | (col + d.rowOffsets[row]))
}

// CreateChar uploads a 5x8 glyph to one of the eight CGRAM slots. Only the
// low three bits of slot are used. Print byte(slot) to show it.
func (d *Dev) CreateChar(slot byte, bitmap [8]byte) error {
	slot &= 0x07
	if err := d.command(CMD_CGRAM_Set | slot<<3); err != nil {
		return err
	}
	for _, row := range bitmap {
		if err := d.send(row, modeData); err != nil {
			return err
		}
	}
	return nil
}

// Write sends buf as character codes. It stops at the first bus error and
// reports how many bytes made it.
func (d *Dev) Write(buf []byte) (int, error) {
	for i, c := range buf {
		if err := d.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

func (d *Dev) WriteByte(c byte) error {
	if err := d.send(c, modeData); err != nil {
		return err
	}
	if d.opts.CharDelay > 0 {
		d.sleep(d.opts.CharDelay)
	}
	return nil
}

func (d *Dev) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

// Print writes text at the cursor.
func (d *Dev) Print(text string) (int, error) {
	return d.WriteString(text)
}

func (d *Dev) Rows() byte {
	return d.opts.Rows
}

func (d *Dev) Cols() byte {
	return d.opts.Cols
}

func (d *Dev) writeDisplayControl() error {
	return d.command(CMD_Display_Control | d.control)
}

func (d *Dev) writeEntryMode() error {
	return d.command(CMD_Entry_Mode | d.entryMode)
}

func (d *Dev) command(data byte) error {
	return d.send(data, modeCommand)
}

// send splits value in two nibbles on D4-D7, high nibble first.
func (d *Dev) send(value byte, mode writeMode) error {
	log.Tracef("send %#02x mode %d", value, mode)
	hi := value & 0xf0
	lo := (value << 4) & 0xf0
	if err := d.write4bits(hi | byte(mode)); err != nil {
		return err
	}
	return d.write4bits(lo | byte(mode))
}

func (d *Dev) write4bits(value byte) error {
	if err := d.write8bits(value); err != nil {
		return err
	}
	return d.pulseEnable(value)
}

// The controller latches D4-D7 on the falling edge of EN.
func (d *Dev) pulseEnable(value byte) error {
	if err := d.write8bits(pinInterpret(EN, value, true)); err != nil {
		return err
	}
	d.sleep(enablePulse)
	if err := d.write8bits(pinInterpret(EN, value, false)); err != nil {
		return err
	}
	d.sleep(commandSettle)
	return nil
}

// write8bits is the only place touching the bus.
func (d *Dev) write8bits(data byte) error {
	return d.c.Tx([]byte{data | d.backlight}, nil)
}

func flag(flags, bit byte, on bool) byte {
	if on {
		return flags | bit
	}
	return flags &^ bit
}

func pinInterpret(pin, data byte, value bool) byte {
	return flag(data, 0x01<<pin, value)
}

var _ conn.Resource = &Dev{}
