// Command driftfs runs the NFS protocol front end as a standalone daemon.
//
// Without a filesystem core attached it serves every operation as
// NFS3ERR_NOTSUPP, which is enough to exercise mounts, framing and the
// takeover machinery. The real daemon embeds the server packages and plugs
// its core in through vfs.Dispatcher.
//
// Signals:
//   - SIGINT/SIGTERM: graceful shutdown (drain in-flight requests, close)
//   - SIGUSR2: takeover (drain, then exec a replacement process that
//     inherits the live sockets)
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/juju/clock"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/portmap"
	"github.com/driftfs/driftfs/internal/protocol/nfs"
	"github.com/driftfs/driftfs/internal/protocol/rpc"
	"github.com/driftfs/driftfs/internal/server"
	"github.com/driftfs/driftfs/internal/trace"
	"github.com/driftfs/driftfs/pkg/config"
	"github.com/driftfs/driftfs/pkg/metrics"
	"github.com/driftfs/driftfs/pkg/vfs"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	handoffListener := flag.Int("handoff-listener-fd", -1, "Inherited listening socket fd (takeover target)")
	handoffConns := flag.String("handoff-conn-fds", "", "Comma-separated inherited connection fds (takeover target)")
	flag.Parse()

	if err := run(*configPath, *handoffListener, *handoffConns); err != nil {
		fmt.Fprintf(os.Stderr, "driftfs: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, handoffListenerFD int, handoffConnFDs string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := setupLogOutput(cfg.Logging.Output); err != nil {
		return err
	}

	var nfsMetrics metrics.NFSMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	nfsMetrics = metrics.NewNFSMetrics()

	bus := trace.NewBus(clock.WallClock, cfg.Trace.BufferSize)
	defer bus.Close()
	sinks, err := config.CreateTraceSinks(cfg.Trace, clock.WallClock)
	if err != nil {
		return err
	}
	for _, sink := range sinks {
		bus.Subscribe(sink)
	}

	processor := nfs.NewProcessor(vfs.Unimplemented{}, nfs.ProcessorConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		Clock:          clock.WallClock,
		Bus:            bus,
		Metrics:        nfsMetrics,
	})

	srv := server.New(processor, server.Config{
		Address:           cfg.Server.Address,
		MaxWorkersPerConn: cfg.Server.MaxWorkersPerConn,
		ReadBufferSize:    cfg.Server.ReadBufferSize,
	}, nfsMetrics)

	if handoffListenerFD >= 0 {
		listenerFile, connFiles, err := inheritedFiles(handoffListenerFD, handoffConnFDs)
		if err != nil {
			return err
		}
		if err := srv.ListenFromHandoff(listenerFile, connFiles); err != nil {
			return err
		}
	} else {
		if err := srv.Listen(); err != nil {
			return err
		}
	}

	if cfg.Portmap.Enabled {
		registerPortmap(cfg)
		defer unregisterPortmap(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)

	for {
		select {
		case err := <-serveErr:
			return err
		case sig := <-signals:
			switch sig {
			case syscall.SIGUSR2:
				logger.Info("takeover signal received")
				return runTakeover(cfg, srv, configPath)
			default:
				logger.Info("shutdown signal received: %v", sig)
				stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer stopCancel()
				if err := srv.Stop(stopCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			}
		}
	}
}

// runTakeover drains the server and execs a replacement process that
// inherits the listening socket and every live connection.
func runTakeover(cfg *config.Config, srv *server.Server, configPath string) error {
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	result, err := srv.TakeoverStop(drainCtx)
	if err != nil {
		return fmt.Errorf("takeover drain: %w", err)
	}

	// ExtraFiles map to descriptors 3, 4, 5, ... in the child.
	extraFiles := []*os.File{result.Listener}
	connFDs := make([]string, 0, len(result.Conns))
	for i, f := range result.Conns {
		extraFiles = append(extraFiles, f)
		connFDs = append(connFDs, strconv.Itoa(4+i))
	}

	args := []string{
		"-handoff-listener-fd", "3",
	}
	if len(connFDs) > 0 {
		args = append(args, "-handoff-conn-fds", strings.Join(connFDs, ","))
	}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = extraFiles
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start replacement process: %w", err)
	}

	logger.Info("replacement process started (pid %d), %d connection(s) transferred",
		cmd.Process.Pid, len(result.Conns))

	for _, f := range extraFiles {
		_ = f.Close()
	}
	return nil
}

// inheritedFiles wraps the descriptor numbers passed by a predecessor.
func inheritedFiles(listenerFD int, connFDs string) (*os.File, []*os.File, error) {
	listenerFile := os.NewFile(uintptr(listenerFD), "handoff-listener")
	if listenerFile == nil {
		return nil, nil, fmt.Errorf("invalid listener fd %d", listenerFD)
	}

	var connFiles []*os.File
	if connFDs != "" {
		for _, field := range strings.Split(connFDs, ",") {
			fd, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, nil, fmt.Errorf("invalid connection fd %q: %w", field, err)
			}
			file := os.NewFile(uintptr(fd), "handoff-conn")
			if file == nil {
				return nil, nil, fmt.Errorf("invalid connection fd %d", fd)
			}
			connFiles = append(connFiles, file)
		}
	}
	return listenerFile, connFiles, nil
}

func registerPortmap(cfg *config.Config) {
	client := portmap.NewClient(cfg.Portmap.Address)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port, err := listenPort(cfg.Server.Address)
	if err != nil {
		logger.Warn("portmap registration skipped: %v", err)
		return
	}

	ok, err := client.Set(ctx, rpc.ProgramNFS, nfs.NFSVersion, port)
	switch {
	case err != nil:
		logger.Warn("portmap registration failed: %v", err)
	case !ok:
		logger.Warn("portmap registration refused by rpcbind")
	default:
		logger.Info("registered NFS v%d on port %d with rpcbind", nfs.NFSVersion, port)
	}
}

func unregisterPortmap(cfg *config.Config) {
	client := portmap.NewClient(cfg.Portmap.Address)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Unset(ctx, rpc.ProgramNFS, nfs.NFSVersion); err != nil {
		logger.Warn("portmap unregistration failed: %v", err)
	}
}

func listenPort(address string) (uint32, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return uint32(port), nil
}

func setupLogOutput(output string) error {
	switch output {
	case "", "stdout":
		return nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", output, err)
		}
		logger.SetOutput(f)
		return nil
	}
}
