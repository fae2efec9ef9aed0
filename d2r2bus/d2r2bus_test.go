/*
Copyright 2024 Tim St. Pierre
*/
package d2r2bus

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/tstpierre-tc/lcdi2c"
)

type fakeDevice struct {
	written [][]byte
	read    []byte
	short   bool
	err     error
	closed  bool
}

func (f *fakeDevice) WriteBytes(buf []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, append([]byte(nil), buf...))
	if f.short {
		return len(buf) - 1, nil
	}
	return len(buf), nil
}

func (f *fakeDevice) ReadBytes(buf []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return copy(buf, f.read), nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

func TestTx(t *testing.T) {
	f := &fakeDevice{read: []byte{0xaa, 0xbb}}
	c := &Conn{dev: f, addr: 0x27, bus: 1}
	r := make([]byte, 2)
	if err := c.Tx([]byte{0x01, 0x02}, r); err != nil {
		t.Fatal(err)
	}
	if len(f.written) != 1 || !bytes.Equal(f.written[0], []byte{0x01, 0x02}) {
		t.Errorf("wrote %v", f.written)
	}
	if !bytes.Equal(r, []byte{0xaa, 0xbb}) {
		t.Errorf("read % x", r)
	}
	if s := c.String(); s != "i2c-1(0x27)" {
		t.Errorf("String() = %q", s)
	}
	if err := c.Close(); err != nil || !f.closed {
		t.Errorf("Close() = %v, closed %t", err, f.closed)
	}
}

func TestTxErrors(t *testing.T) {
	errIO := errors.New("remote I/O error")
	c := &Conn{dev: &fakeDevice{err: errIO}, addr: 0x27, bus: 1}
	if err := c.Tx([]byte{0}, nil); !errors.Is(err, errIO) {
		t.Errorf("expected %v, got %v", errIO, err)
	}
	c = &Conn{dev: &fakeDevice{short: true}, addr: 0x27, bus: 1}
	if err := c.Tx([]byte{0}, nil); err == nil {
		t.Error("short write not reported")
	}
	c = &Conn{dev: &fakeDevice{read: []byte{1}}, addr: 0x27, bus: 1}
	if err := c.Tx(nil, make([]byte, 2)); err == nil {
		t.Error("short read not reported")
	}
}

// The display driver puts exactly one byte in every transfer.
func TestDisplayOverConn(t *testing.T) {
	f := &fakeDevice{}
	dev, err := lcdi2c.New(&Conn{dev: f, addr: 0x27, bus: 1}, &lcdi2c.Opts{Cols: 16, Rows: 2, Sleep: func(time.Duration) {}})
	if err != nil {
		t.Fatal(err)
	}
	if n, err := dev.Print("ok"); n != 2 || err != nil {
		t.Fatalf("Print = %d, %v", n, err)
	}
	if len(f.written) != 12 {
		t.Fatalf("expected 12 transfers, got %d", len(f.written))
	}
	for i, w := range f.written {
		if len(w) != 1 {
			t.Errorf("transfer %d carried %d bytes", i, len(w))
		}
	}
}
