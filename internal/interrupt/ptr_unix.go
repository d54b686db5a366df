//go:build !windows

package interrupt

import "unsafe"

func ptrOf(t *termios) unsafe.Pointer {
	return unsafe.Pointer(t)
}
