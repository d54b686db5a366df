//go:build windows

package interrupt

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

var (
	kernel32                = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode      = kernel32.NewProc("GetConsoleMode")
	procSetConsoleMode      = kernel32.NewProc("SetConsoleMode")
	procReadConsoleInput    = kernel32.NewProc("ReadConsoleInputW")
	procWaitForSingleObject = kernel32.NewProc("WaitForSingleObject")
)

const (
	enableLineInput      = 0x0002
	enableEchoInput      = 0x0004
	enableProcessedInput = 0x0001
	keyEventType         = 0x0001
	waitObject0          = 0x00000000
	waitTimeout          = 0x00000102
)

// ErrStopped is returned by ReadKeyContext when the done channel closes.
var ErrStopped = errors.New("read stopped")

type inputRecord struct {
	EventType uint16
	_         uint16
	KeyEvent  keyEventRecord
}

type keyEventRecord struct {
	KeyDown         int32
	RepeatCount     uint16
	VirtualKeyCode  uint16
	VirtualScanCode uint16
	UnicodeChar     uint16
	ControlKeyState uint32
}

type windowsRawReader struct {
	handle   syscall.Handle
	origMode uint32
	restored bool
}

func newRawReader() (rawReader, error) {
	h, err := syscall.GetStdHandle(syscall.STD_INPUT_HANDLE)
	if err != nil {
		return nil, fmt.Errorf("get stdin handle: %w", err)
	}
	var mode uint32
	r, _, e := procGetConsoleMode.Call(uintptr(h), uintptr(unsafe.Pointer(&mode)))
	if r == 0 {
		return nil, fmt.Errorf("get console mode: %v", e)
	}

	reader := &windowsRawReader{handle: h, origMode: mode}
	raw := mode &^ (enableLineInput | enableEchoInput | enableProcessedInput)
	if ok, _, e := procSetConsoleMode.Call(uintptr(h), uintptr(raw)); ok == 0 {
		return nil, fmt.Errorf("set console mode: %v", e)
	}
	return reader, nil
}

func (r *windowsRawReader) Close() error {
	if r.restored {
		return nil
	}
	r.restored = true
	if ok, _, e := procSetConsoleMode.Call(uintptr(r.handle), uintptr(r.origMode)); ok == 0 {
		return fmt.Errorf("restore console mode: %v", e)
	}
	return nil
}

// ReadKeyContext waits on the console input handle with a 100ms timeout so
// it can notice done closing, then reads and classifies one key event.
func (r *windowsRawReader) ReadKeyContext(done <-chan struct{}) (byte, error) {
	for {
		select {
		case <-done:
			return 0, ErrStopped
		default:
		}

		ret, _, _ := procWaitForSingleObject.Call(uintptr(r.handle), 100)
		if ret == waitTimeout {
			continue
		}
		if ret != waitObject0 {
			return 0, fmt.Errorf("wait for console input failed: %d", ret)
		}

		var rec inputRecord
		var numRead uint32
		rr, _, e := procReadConsoleInput.Call(
			uintptr(r.handle),
			uintptr(unsafe.Pointer(&rec)),
			1,
			uintptr(unsafe.Pointer(&numRead)),
		)
		if rr == 0 {
			return 0, fmt.Errorf("read console input: %v", e)
		}
		if numRead == 0 {
			continue
		}
		if rec.EventType == keyEventType && rec.KeyEvent.KeyDown != 0 {
			if ch := byte(rec.KeyEvent.UnicodeChar); ch != 0 {
				return ch, nil
			}
			if rec.KeyEvent.VirtualKeyCode == 0x1B {
				return 0x1B, nil
			}
		}
	}
}
