package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestTimeout bounds how long a connected client may take to send its request.
const requestTimeout = 2 * time.Second

// Handler answers one control request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is cancelled or the
// listener is closed. Handlers still running finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))

	var req Request
	if err := readLine(newLineReader(conn), &req, "request"); err != nil {
		_ = writeLine(conn, Response{OK: false, Error: err.Error()})
		return
	}
	req.Command = normalizeCommand(req.Command)

	_ = writeLine(conn, handler.Handle(ctx, req))
}
