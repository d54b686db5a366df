package interrupt

import (
	"sync"
	"time"
)

const keyboardPollInterval = 50 * time.Millisecond

const (
	keyESC     = 0x1b
	keyCtrlC   = 0x03
)

// rawReader is implemented per-OS (unix/windows) to read one key non-
// blockingly from the terminal, stopping cleanly when done is closed.
type rawReader interface {
	ReadKeyContext(done <-chan struct{}) (byte, error)
	Close() error
}

// watcher runs a background goroutine polling stdin for ESC or Ctrl-C and
// flipping the Controller's interrupt flag when either arrives.
type watcher struct {
	controller *Controller
	reader     rawReader

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// StartKeyboardListener begins watching stdin for ESC (0x1b) or Ctrl-C
// (0x03) and interrupting the controller when either is seen. Where raw
// mode can't be entered (e.g. stdin isn't a TTY) it starts nothing and
// returns a no-op stop func together with the error; the SIGINT handler
// remains the fallback interrupt path in that case.
func (c *Controller) StartKeyboardListener() (stop func(), err error) {
	reader, err := newRawReader()
	if err != nil {
		return func() {}, err
	}

	w := &watcher{
		controller: c,
		reader:     reader,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go w.run()

	return w.stop, nil
}

func (w *watcher) run() {
	defer close(w.stopped)
	for {
		key, err := w.reader.ReadKeyContext(w.done)
		if err != nil {
			return
		}
		if key == keyESC || key == keyCtrlC {
			w.controller.Interrupt()
		}
	}
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	w.reader.Close()
	select {
	case <-w.stopped:
	case <-time.After(time.Second):
	}
}
