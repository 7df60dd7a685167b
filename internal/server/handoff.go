package server

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Socket detach helpers for takeover. Go sockets live in the runtime
// poller; handing one to a successor process means duplicating the
// descriptor out of the runtime (File dups the fd) and clearing
// close-on-exec so the descriptor survives the exec of the replacement.

// detachConn duplicates an accepted socket's descriptor for handoff.
func detachConn(conn net.Conn) (*os.File, error) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, fmt.Errorf("connection type %T does not support handoff", conn)
	}

	file, err := tcp.File()
	if err != nil {
		return nil, fmt.Errorf("duplicate connection descriptor: %w", err)
	}
	if err := clearCloseOnExec(file); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

// detachListener duplicates the listening socket's descriptor for handoff.
func detachListener(listener net.Listener) (*os.File, error) {
	tcp, ok := listener.(*net.TCPListener)
	if !ok {
		return nil, fmt.Errorf("listener type %T does not support handoff", listener)
	}

	file, err := tcp.File()
	if err != nil {
		return nil, fmt.Errorf("duplicate listener descriptor: %w", err)
	}
	if err := clearCloseOnExec(file); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

func clearCloseOnExec(file *os.File) error {
	if _, err := unix.FcntlInt(file.Fd(), unix.F_SETFD, 0); err != nil {
		return fmt.Errorf("clear close-on-exec on fd %d: %w", file.Fd(), err)
	}
	return nil
}
