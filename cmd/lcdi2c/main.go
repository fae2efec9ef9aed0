/*
Copyright 2024 Tim St. Pierre
lcdi2c drives an HD44780 display on a PCF8574 backpack from the shell.

Usage:

	lcdi2c [options] <command> [arguments]

Commands:

	text <col> <row> <message>   Print a message at a position
	clear                        Clear the display
	home                         Move the cursor home
	backlight on|off
	display on|off
	cursor on|off
	blink on|off
	scroll left|right            Shift the display window
	glyph <slot> <r0> .. <r7>    Upload a custom 5x8 character, rows in hex
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/tstpierre-tc/lcdi2c"
	"github.com/tstpierre-tc/lcdi2c/d2r2bus"
	"github.com/tstpierre-tc/lcdi2c/internal/config"
)

var (
	configPath = flag.String("config", "/etc/lcdi2c.yaml", "YAML configuration file")
	verbose    = flag.Bool("v", false, "Verbose output")
	noInit     = flag.Bool("no-init", false, "Skip the power-on reset sequence")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [arguments]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  text <col> <row> <message>   Print a message at a position")
		fmt.Fprintln(os.Stderr, "  clear                        Clear the display")
		fmt.Fprintln(os.Stderr, "  home                         Move the cursor home")
		fmt.Fprintln(os.Stderr, "  backlight|display|cursor|blink on|off")
		fmt.Fprintln(os.Stderr, "  scroll left|right            Shift the display window")
		fmt.Fprintln(os.Stderr, "  glyph <slot> <r0> .. <r7>    Upload a custom character")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	dev, closer, err := openDisplay(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	if !*noInit {
		if err := dev.Begin(); err != nil {
			log.Fatal(err)
		}
	}
	if err := run(dev, flag.Args()); err != nil {
		log.WithField("dev", dev.String()).Error(err)
		closer.Close()
		os.Exit(1)
	}
}

// openDisplay builds the display on the configured backend and returns what
// to close once done.
func openDisplay(cfg *config.Config) (*lcdi2c.Dev, io.Closer, error) {
	if cfg.Backend == config.BackendD2R2 {
		c, err := d2r2bus.Open(uint8(cfg.Address), cfg.D2R2Bus)
		if err != nil {
			return nil, nil, err
		}
		dev, err := lcdi2c.New(c, cfg.Opts())
		if err != nil {
			c.Close()
			return nil, nil, err
		}
		return dev, c, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I²C: %w", err)
	}
	if cfg.BusSpeedKHz > 0 {
		if err := bus.SetSpeed(physic.Frequency(cfg.BusSpeedKHz) * physic.KiloHertz); err != nil {
			bus.Close()
			return nil, nil, err
		}
	}
	log.Debugf("using %s", bus)
	dev, err := lcdi2c.NewI2C(bus, cfg.Opts())
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return dev, bus, nil
}

func run(dev *lcdi2c.Dev, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "text":
		if len(args) < 3 {
			return fmt.Errorf("usage: text <col> <row> <message>")
		}
		col, err := parseByte(args[0], 10)
		if err != nil {
			return err
		}
		row, err := parseByte(args[1], 10)
		if err != nil {
			return err
		}
		if err := dev.SetCursor(col, row); err != nil {
			return err
		}
		n, err := dev.Print(strings.Join(args[2:], " "))
		log.Debugf("wrote %d characters", n)
		return err
	case "clear":
		return dev.Clear()
	case "home":
		return dev.Home()
	case "backlight", "display", "cursor", "blink":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s on|off", cmd)
		}
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return map[string]func(bool) error{
			"backlight": dev.Backlight,
			"display":   dev.Display,
			"cursor":    dev.Cursor,
			"blink":     dev.Blink,
		}[cmd](on)
	case "scroll":
		if len(args) != 1 {
			return fmt.Errorf("usage: scroll left|right")
		}
		switch args[0] {
		case "left":
			return dev.Scroll(lcdi2c.Left)
		case "right":
			return dev.Scroll(lcdi2c.Right)
		}
		return fmt.Errorf("unknown direction %q", args[0])
	case "glyph":
		if len(args) != 9 {
			return fmt.Errorf("usage: glyph <slot> <r0> .. <r7>")
		}
		slot, err := parseByte(args[0], 10)
		if err != nil {
			return err
		}
		var bitmap [8]byte
		for i := range bitmap {
			if bitmap[i], err = parseByte(strings.TrimPrefix(args[i+1], "0x"), 16); err != nil {
				return err
			}
		}
		return dev.CreateChar(slot, bitmap)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func parseByte(s string, base int) (byte, error) {
	v, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", s, err)
	}
	return byte(v), nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
