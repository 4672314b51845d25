package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/swervedrive/internal/testutil"
)

// shortWritePort reports fewer bytes written than it was given.
type shortWritePort struct {
	*TestableSerialPort
}

func (p shortWritePort) Write(b []byte) (int, error) {
	return len(b) - 1, nil
}

func TestSerialMux_SendCommand_AppendsNewline(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("T 0 1.000000 0.000000"))
	require.NoError(t, mux.SendCommand("H\n"))

	assert.Equal(t, "T 0 1.000000 0.000000\nH\n", port.WrittenData())
}

func TestSerialMux_SendCommand_Errors(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("line busy")
	mux := NewSerialMux(port)

	assert.EqualError(t, mux.SendCommand("H"), "line busy")

	short := NewSerialMux(shortWritePort{NewTestableSerialPort()})
	assert.ErrorIs(t, short.SendCommand("H"), ErrWriteFailed)
}

func TestSerialMux_Monitor_FansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddReadData([]byte("{\"type\":\"gyro\",\"heading\":0.5}\r\n\r\nsecond\n"))

	for _, ch := range []chan string{a, b} {
		select {
		case line := <-ch:
			assert.Equal(t, `{"type":"gyro","heading":0.5}`, line)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for first line")
		}
		select {
		case line := <-ch:
			assert.Equal(t, "second", line, "blank lines are skipped")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for second line")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestSerialMux_Monitor_ReturnsOnEOF(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()

	port.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after EOF")
	}
}

func TestSerialMux_UnsubscribeAndClose(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open, "unsubscribed channel should be closed")

	mux.Unsubscribe("not-a-subscriber")

	_, ch2 := mux.Subscribe()
	require.NoError(t, mux.Close())
	_, open = <-ch2
	assert.False(t, open, "Close should close subscriber channels")
	assert.True(t, port.Closed())
}

func TestSerialMux_AdminSend(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	form := url.Values{"command": {"H"}}
	req := testutil.NewLoopbackRequest(http.MethodPost, "/debug/serial-send", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "H\n", port.WrittenData())

	req = testutil.NewLoopbackRequest(http.MethodGet, "/debug/serial-send", nil)
	rec = httptest.NewRecorder()
	httpMux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
