package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"ComandaPOS/app/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport appends every write to one buffer and fails the test if
// two writes overlap
type recordingTransport struct {
	mu       sync.Mutex
	active   bool
	overlaps int
	buf      bytes.Buffer
	writeErr error
	closed   bool
}

func (r *recordingTransport) Write(ctx context.Context, data []byte) error {
	r.mu.Lock()
	if r.active {
		r.overlaps++
	}
	r.active = true
	r.mu.Unlock()

	// Byte-at-a-time with a yield so interleaving would show up
	for _, b := range data {
		r.mu.Lock()
		r.buf.WriteByte(b)
		r.mu.Unlock()
		time.Sleep(time.Microsecond)
	}

	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
	return r.writeErr
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestSendWithoutConnection(t *testing.T) {
	h := NewDeviceHandle()
	err := h.Send(context.Background(), []byte("hola"))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, h.Connected())
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	transport := &recordingTransport{}
	h := NewDeviceHandle()
	h.Connect(transport, DeviceInfo{Name: "Test", Vendor: "Epson", Connection: "usb"})
	defer h.Close()

	jobs := [][]byte{
		bytes.Repeat([]byte{'a'}, 64),
		bytes.Repeat([]byte{'b'}, 64),
		bytes.Repeat([]byte{'c'}, 64),
		bytes.Repeat([]byte{'d'}, 64),
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(data []byte) {
			defer wg.Done()
			assert.NoError(t, h.Send(context.Background(), data))
		}(job)
	}
	wg.Wait()

	assert.Zero(t, transport.overlaps)
	out := transport.buf.Bytes()
	require.Len(t, out, 4*64)
	// Every 64-byte block must be a single job
	for i := 0; i < len(out); i += 64 {
		block := out[i : i+64]
		assert.Equal(t, bytes.Repeat(block[:1], 64), block)
	}
}

func TestSendPropagatesTransportError(t *testing.T) {
	failure := &TransferError{Op: "transfer", Err: errors.New("pipe error")}
	h := NewDeviceHandle()
	h.Connect(&recordingTransport{writeErr: failure}, DeviceInfo{Name: "Test"})
	defer h.Close()

	err := h.Send(context.Background(), []byte{0x1B, '@'})
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "transfer", transferErr.Op)
}

func TestReconnectReplacesTransport(t *testing.T) {
	first := &recordingTransport{}
	second := &recordingTransport{}

	h := NewDeviceHandle()
	h.Connect(first, DeviceInfo{Name: "Uno"})
	h.Connect(second, DeviceInfo{Name: "Dos"})

	assert.True(t, first.closed)
	info, ok := h.Info()
	require.True(t, ok)
	assert.Equal(t, "Dos", info.Name)

	require.NoError(t, h.Send(context.Background(), []byte("x")))
	assert.Equal(t, "x", second.buf.String())
	assert.Zero(t, first.buf.Len())

	require.NoError(t, h.Close())
	assert.True(t, second.closed)
	assert.ErrorIs(t, h.Send(context.Background(), []byte("y")), ErrNotConnected)
}

func TestDescribeDeviceFallbacks(t *testing.T) {
	info := DescribeDevice("", "")
	assert.Equal(t, DefaultDeviceName, info.Name)
	assert.Equal(t, DefaultDeviceVendor, info.Vendor)

	info = DescribeDevice("TM-T20", "EPSON")
	assert.Equal(t, "TM-T20", info.Name)
	assert.Equal(t, "EPSON", info.Vendor)
}

func TestVendorAllowList(t *testing.T) {
	name, ok := VendorName(0x04b8)
	assert.True(t, ok)
	assert.Equal(t, "Epson", name)

	_, ok = VendorName(0x046d) // Logitech
	assert.False(t, ok)
}

func TestNetworkTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	transport, info, err := DialNetwork(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, "network", info.Connection)

	h := NewDeviceHandle()
	h.Connect(transport, info)
	require.NoError(t, h.Send(context.Background(), []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}))
	require.NoError(t, h.Close())

	select {
	case data := <-received:
		assert.Equal(t, []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not receive data")
	}
}

func TestBrowserSink(t *testing.T) {
	var opened string
	sink := &BrowserSink{open: func(r io.Reader) error {
		b, err := io.ReadAll(r)
		opened = string(b)
		return err
	}}

	err := sink.Show(context.Background(), document.Document{Title: "Ticket", HTML: "<p>hola</p>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>hola</p>", opened)

	sink.open = func(io.Reader) error { return errors.New("no browser") }
	err = sink.Show(context.Background(), document.Document{Title: "Ticket"})
	assert.ErrorContains(t, err, "no browser")
}
