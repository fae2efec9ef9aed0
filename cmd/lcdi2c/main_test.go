/*
Copyright 2024 Tim St. Pierre
*/
package main

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/tstpierre-tc/lcdi2c"
)

func getDev(t *testing.T) (*lcdi2c.Dev, *i2ctest.Record) {
	t.Helper()
	rec := &i2ctest.Record{}
	dev, err := lcdi2c.NewI2C(rec, &lcdi2c.Opts{Cols: 16, Rows: 2, Sleep: func(time.Duration) {}})
	if err != nil {
		t.Fatal(err)
	}
	return dev, rec
}

func TestRun(t *testing.T) {
	tests := []struct {
		args []string
		ops  int
	}{
		{[]string{"text", "0", "1", "Hi", "there"}, 6 * 9},
		{[]string{"clear"}, 6},
		{[]string{"home"}, 6},
		{[]string{"backlight", "off"}, 1},
		{[]string{"display", "on"}, 6},
		{[]string{"cursor", "1"}, 6},
		{[]string{"blink", "false"}, 6},
		{[]string{"scroll", "left"}, 6},
		{[]string{"glyph", "3", "0x00", "0a", "1f", "1f", "0e", "04", "00", "00"}, 6 * 9},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			dev, rec := getDev(t)
			if err := run(dev, tt.args); err != nil {
				t.Fatal(err)
			}
			if len(rec.Ops) != tt.ops {
				t.Errorf("%v issued %d transactions, expected %d", tt.args, len(rec.Ops), tt.ops)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := [][]string{
		{"bogus"},
		{"text", "0"},
		{"text", "x", "0", "a"},
		{"backlight"},
		{"cursor", "maybe"},
		{"scroll", "up"},
		{"glyph", "1", "00"},
		{"glyph", "1", "zz", "0", "0", "0", "0", "0", "0", "0"},
	}
	for _, args := range tests {
		dev, rec := getDev(t)
		if err := run(dev, args); err == nil {
			t.Errorf("%v: expected an error", args)
		}
		if len(rec.Ops) != 0 {
			t.Errorf("%v: issued %d transactions", args, len(rec.Ops))
		}
	}
}

func TestParseByte(t *testing.T) {
	if v, err := parseByte("255", 10); v != 255 || err != nil {
		t.Errorf("parseByte(255) = %d, %v", v, err)
	}
	_, err := parseByte("256", 10)
	if !errors.Is(err, strconv.ErrRange) {
		t.Errorf("expected a range error, got %v", err)
	}
}
