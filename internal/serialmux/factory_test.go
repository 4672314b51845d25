package serialmux

import "testing"

func TestNewRealSerialMux_InvalidPath(t *testing.T) {
	mux, err := NewRealSerialMux("/dev/nonexistent-serial-port-12345", PortOptions{})
	if err == nil {
		mux.Close()
		t.Fatal("expected error when opening non-existent serial port")
	}
	if mux != nil {
		t.Error("expected nil mux when error is returned")
	}
}

func TestNewRealSerialMux_InvalidOptions(t *testing.T) {
	if _, err := NewRealSerialMux("/dev/null", PortOptions{StopBits: 5}); err == nil {
		t.Fatal("expected error for invalid port options")
	}
}
