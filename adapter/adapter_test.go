package adapter

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmptyInterface(t *testing.T) {
	_, err := New("", time.Second)
	assert.ErrorIs(t, err, ErrNoInterface)

	_, err = New("   ", time.Second)
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestNewUnsupportedInterface(t *testing.T) {
	testCases := []string{
		"printer:EPSON_TM_T88",
		"bluetooth://00:11:22",
		"lp0",
	}

	for _, iface := range testCases {
		t.Run(iface, func(t *testing.T) {
			_, err := New(iface, time.Second)
			assert.ErrorIs(t, err, ErrUnsupportedInterface)
		})
	}
}

func TestNewNetwork(t *testing.T) {
	a, err := New("tcp://192.168.1.50:9100", time.Second)
	require.NoError(t, err)

	network, ok := a.(*NetworkAdapter)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.50:9100", network.Address())
	assert.False(t, network.IsOpen())
}

func TestNewNetworkDefaultPort(t *testing.T) {
	a, err := New("tcp://printer.local", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "printer.local:9100", a.(*NetworkAdapter).Address())
}

func TestNewSerial(t *testing.T) {
	a, err := New("serial:/dev/ttyUSB0?baud=19200&parity=even", time.Second)
	require.NoError(t, err)

	s, ok := a.(*SerialAdapter)
	require.True(t, ok)
	assert.Equal(t, "/dev/ttyUSB0", s.Path())
	assert.Equal(t, SerialOptions{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: "E"}, s.Options())
}

func TestNewSerialInvalid(t *testing.T) {
	_, err := New("serial:/dev/ttyUSB0?baud=fast", time.Second)
	assert.Error(t, err)

	_, err = New("serial:", time.Second)
	assert.Error(t, err)
}

func TestNewFile(t *testing.T) {
	a, err := New("/dev/usb/lp0", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "/dev/usb/lp0", a.(*FileAdapter).Path())

	a, err = New("file:/tmp/receipt.bin", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/receipt.bin", a.(*FileAdapter).Path())
}

func TestNewUSBInvalidID(t *testing.T) {
	_, err := New("usb://04b8", time.Second)
	assert.Error(t, err)

	_, err = New("usb://zzzz:0202", time.Second)
	assert.Error(t, err)
}

func TestParseVIDPID(t *testing.T) {
	vid, pid, err := parseVIDPID("04b8:0e15")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x04b8), vid)
	assert.Equal(t, uint16(0x0e15), pid)
}

func TestNetworkAdapterWrite(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		received <- buf[:n]
	}()

	a, err := NewNetworkAdapter(listener.Addr().String(), time.Second)
	require.NoError(t, err)

	_, err = a.Write([]byte{0x1B, 0x40})
	assert.ErrorContains(t, err, "not open")

	require.NoError(t, a.Open())
	assert.True(t, a.IsOpen())
	assert.Error(t, a.Open())

	n, err := a.Write([]byte{0x1B, 0x40})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	select {
	case data := <-received:
		assert.Equal(t, []byte{0x1B, 0x40}, data)
	case <-time.After(time.Second):
		t.Fatal("printer did not receive data")
	}

	require.NoError(t, a.Close())
	assert.False(t, a.IsOpen())
	assert.NoError(t, a.Close())
}

func TestNetworkAdapterOpenRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	listener.Close()

	a, err := NewNetworkAdapter(address, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Error(t, a.Open())
	assert.False(t, a.IsOpen())
}

func TestFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp0")
	a := NewFileAdapter(path)

	_, err := a.Write([]byte("x"))
	assert.ErrorContains(t, err, "not open")

	require.NoError(t, a.Open())
	assert.Error(t, a.Open())

	_, err = a.Write([]byte{0x1B, 0x40})
	require.NoError(t, err)
	_, err = a.Write([]byte("hello\n"))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x1B, 0x40}, []byte("hello\n")...), data)
}
