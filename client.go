package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"lorediff/logger"
)

// runRelay is the editor-facing half of the split-process design: the
// plugin spawns one lorediff process per editor session and speaks
// msgpack-rpc over its stdio, while review state lives in the
// long-running daemon. The relay makes sure a daemon is alive, then
// pipes stdio to its socket until the editor hangs up.
func runRelay() error {
	if err := ensureDaemon(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	socketPath := getSocketPath()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Closing the socket when stdin drains unblocks the return copy,
	// so the relay exits as soon as the editor disconnects.
	go func() {
		io.Copy(conn, os.Stdin)
		conn.Close()
	}()
	io.Copy(os.Stdout, conn)
	return nil
}

// ensureDaemon spawns a detached daemon process unless the pid file
// already points at a live one.
func ensureDaemon() error {
	if running, pid := isDaemonRunning(); running {
		logger.Debug("reusing daemon pid %d", pid)
		return nil
	}

	logger.Debug("no daemon found, spawning one")
	_, err := os.StartProcess(os.Args[0], []string{os.Args[0], "--daemon"}, &os.ProcAttr{
		Env: os.Environ(),
		// No stdio: the daemon must not inherit the editor's pipes or
		// it would keep them open after the editor exits.
		Files: []*os.File{nil, nil, nil},
	})
	if err != nil {
		return err
	}

	return waitForDaemon(5 * time.Second)
}

// waitForDaemon polls until the fresh daemon has written its pid file
// and answers a liveness check.
func waitForDaemon(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, _ := isDaemonRunning(); running {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up within %s", timeout)
}
