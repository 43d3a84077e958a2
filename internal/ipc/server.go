package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/goccy/go-json"

	"github.com/adrianmross/geo-tree/internal/logger"
	ipcmsg "github.com/adrianmross/geo-tree/pkg/ipc"
)

// HandlerFunc processes a request and returns a response payload or error.
type HandlerFunc func(ctx context.Context, req ipcmsg.Request) (interface{}, error)

// Serve starts a Unix socket server and handles requests with the provided
// handler until ctx is done.
func Serve(ctx context.Context, socketPath string, handler HandlerFunc) error {
	// remove stale socket
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, c net.Conn, handler HandlerFunc) {
	defer c.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c))
	for {
		line, err := rw.ReadBytes('\n')
		if err != nil {
			return
		}
		var req ipcmsg.Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeResp(rw, ipcmsg.Response{OK: false, Error: "invalid request"})
			continue
		}
		data, err := handler(ctx, req)
		if err != nil {
			logger.L().Debug("ipc_request_failed", "method", req.Method, "err", err)
			writeResp(rw, ipcmsg.Response{OK: false, Error: err.Error()})
			continue
		}
		writeResp(rw, ipcmsg.Response{OK: true, Data: data})
	}
}

func writeResp(w *bufio.ReadWriter, resp ipcmsg.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = w.Write(b)
	_ = w.Flush()
}

// ErrNotImplemented is returned for unknown methods.
var ErrNotImplemented = errors.New("method not implemented")
