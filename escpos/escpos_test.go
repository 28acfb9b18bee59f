package escpos

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAdapter is a mock implementation of the adapter.Adapter interface for testing
type MockAdapter struct {
	open      bool
	openErr   error
	writeErr  error
	writeData []byte
}

func (m *MockAdapter) Open() error {
	if m.openErr != nil {
		return m.openErr
	}
	m.open = true
	return nil
}

func (m *MockAdapter) Write(data []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writeData = append(m.writeData, data...)
	return len(data), nil
}

func (m *MockAdapter) Read(buf []byte) (int, error) {
	return 0, nil
}

func (m *MockAdapter) Close() error {
	m.open = false
	return nil
}

func (m *MockAdapter) IsOpen() bool {
	return m.open
}

func newDriver(t *testing.T, cfg Config) (*Driver, *MockAdapter) {
	t.Helper()
	mock := &MockAdapter{}
	d, err := NewWithAdapter(mock, cfg)
	require.NoError(t, err)
	return d, mock
}

func TestNewWithAdapterOpens(t *testing.T) {
	d, mock := newDriver(t, Config{})

	assert.True(t, mock.IsOpen())
	assert.Equal(t, DefaultWidth, d.Width())
	assert.Equal(t, DefaultTimeout, d.Config().Timeout)
	assert.Equal(t, DefaultCharacterSet, d.Config().CharacterSet)

	require.NoError(t, d.Close())
	assert.False(t, mock.IsOpen())
}

func TestNewWithAdapterOpenError(t *testing.T) {
	openErr := errors.New("no paper path")
	_, err := NewWithAdapter(&MockAdapter{openErr: openErr}, Config{})
	assert.ErrorIs(t, err, openErr)
}

func TestNewUnknownCharacterSet(t *testing.T) {
	_, err := NewWithAdapter(&MockAdapter{}, Config{CharacterSet: "KATAKANA"})
	assert.ErrorIs(t, err, ErrUnknownCharacterSet)

	_, err = New(Config{Interface: "tcp://127.0.0.1:9100", CharacterSet: "KATAKANA"})
	assert.ErrorIs(t, err, ErrUnknownCharacterSet)
}

func TestNewNoInterface(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	d, mock := newDriver(t, Config{CharacterSet: "PC858_EURO"})

	require.NoError(t, d.Clear())
	assert.Equal(t, []byte{0x1B, '@', 0x1B, 't', 19}, mock.writeData)
}

func TestOpenCashDrawer(t *testing.T) {
	d, mock := newDriver(t, Config{})

	require.NoError(t, d.OpenCashDrawer())
	assert.Equal(t, []byte{0x1B, 'p', 0x00, 0x19, 0xFA}, mock.writeData)
}

func TestPrint(t *testing.T) {
	d, mock := newDriver(t, Config{})

	require.NoError(t, d.Print("Café"))
	assert.Equal(t, []byte{'C', 'a', 'f', 0x82, '\n'}, mock.writeData)
}

func TestPrintEmptyLine(t *testing.T) {
	d, mock := newDriver(t, Config{})

	require.NoError(t, d.Print(""))
	assert.Equal(t, []byte{'\n'}, mock.writeData)
}

func TestPrintUnsupportedRune(t *testing.T) {
	d, mock := newDriver(t, Config{})

	require.NoError(t, d.Print("日"))
	assert.NotEmpty(t, mock.writeData)
	assert.Equal(t, byte('\n'), mock.writeData[len(mock.writeData)-1])
}

func TestCut(t *testing.T) {
	d, mock := newDriver(t, Config{})

	require.NoError(t, d.Cut())
	assert.Equal(t, []byte{0x1B, 'd', 0x03, 0x1D, 'V', 0x00}, mock.writeData)
}

func TestWriteErrorPropagates(t *testing.T) {
	d, mock := newDriver(t, Config{})
	writeErr := errors.New("out of paper")
	mock.writeErr = writeErr

	assert.ErrorIs(t, d.Clear(), writeErr)
	assert.ErrorIs(t, d.OpenCashDrawer(), writeErr)
	assert.ErrorIs(t, d.Print("x"), writeErr)
	assert.ErrorIs(t, d.Cut(), writeErr)
}
