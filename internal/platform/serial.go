//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SerialPTT keys a transmitter through a serial port's RTS line,
// using golang.org/x/sys/unix termios ioctls for raw, non-canonical
// control of the line — the common "soundcard modem + serial PTT"
// rig control arrangement this TNC's native (non-file) deployment
// targets.
type SerialPTT struct {
	f *os.File
}

// OpenSerialPTT opens device in raw mode for RTS-line PTT control.
func OpenSerialPTT(device string) (*SerialPTT, error) {
	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("platform: opening serial PTT device %s: %w", device, err)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("platform: reading termios for %s: %w", device, err)
	}

	raw := *t
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.IXOFF
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		f.Close()
		return nil, fmt.Errorf("platform: setting raw termios for %s: %w", device, err)
	}

	return &SerialPTT{f: f}, nil
}

// Key asserts RTS, keying the transmitter.
func (s *SerialPTT) Key() error {
	return s.setRTS(true)
}

// Unkey deasserts RTS, unkeying the transmitter.
func (s *SerialPTT) Unkey() error {
	return s.setRTS(false)
}

func (s *SerialPTT) setRTS(on bool) error {
	fd := int(s.f.Fd())
	bits, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("platform: reading modem control lines: %w", err)
	}
	if on {
		bits |= unix.TIOCM_RTS
	} else {
		bits &^= unix.TIOCM_RTS
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCMSET, bits); err != nil {
		return fmt.Errorf("platform: setting modem control lines: %w", err)
	}
	return nil
}

// Close releases the underlying serial port.
func (s *SerialPTT) Close() error {
	return s.f.Close()
}
