//go:build darwin

package interrupt

import "syscall"

type termios struct {
	Iflag  uint64
	Oflag  uint64
	Cflag  uint64
	Lflag  uint64
	Cc     [20]byte
	Ispeed uint64
	Ospeed uint64
}

const (
	icanon = 0x00000100
	echo   = 0x00000008
	vmin   = 16
	vtime  = 17

	tiocgeta = 0x40487413
	tiocseta = 0x80487414
)

func tcgets(fd int) (termios, error) {
	var t termios
	if err := ioctlTermios(fd, tiocgeta, &t); err != nil {
		return termios{}, err
	}
	return t, nil
}

func tcsets(fd int, t termios) error {
	return ioctlTermios(fd, tiocseta, &t)
}

func ioctlTermios(fd int, req uintptr, t *termios) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), req, uintptr(ptrOf(t)))
	if errno != 0 {
		return errno
	}
	return nil
}

func selectReadable(fd int, timeoutUsec int64) (bool, error) {
	var readFds syscall.FdSet
	readFds.Bits[fd/32] |= 1 << (uint(fd) % 32)
	tv := syscall.Timeval{Usec: int32(timeoutUsec)}
	err := syscall.Select(fd+1, &readFds, nil, nil, &tv)
	if err != nil {
		return false, err
	}
	return readFds.Bits[fd/32]&(1<<(uint(fd)%32)) != 0, nil
}
