package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shaharia-lab/mcpstdio/observability"
)

const readChunkSize = 32 * 1024

// StdIOServer is the MCP server implementation using standard input/output.
type StdIOServer struct {
	*BaseServer
	in  io.Reader
	out io.Writer
}

// NewStdIOServer creates a new StdIOServer.
func NewStdIOServer(baseServer *BaseServer, in io.Reader, out io.Writer) *StdIOServer {
	return &StdIOServer{
		BaseServer: baseServer,
		in:         in,
		out:        out,
	}
}

// Run serves one session over the server's input and output until the input
// reaches EOF or ctx is cancelled. On EOF it waits for in-flight tool calls
// to write their envelopes and returns nil. On cancellation it waits at most
// the drain timeout, then closes the output so later envelopes are dropped,
// and returns ctx.Err(). A Read already blocked on the input is not
// interrupted.
func (s *StdIOServer) Run(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "StdIOServer.Run")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	session := NewSession()
	dispatcher := s.NewDispatcher(session, NewMessageWriter(s.out))
	logger := dispatcher.logger

	done := make(chan error, 1)
	go func() {
		done <- s.readLoop(ctx, dispatcher, logger)
	}()

	select {
	case <-ctx.Done():
		logger.Debug("Context cancelled, StdIOServer shutting down")
		s.drain(dispatcher, logger)
		err = ctx.Err()
		return err
	case err = <-done:
		if err != nil {
			logger.WithErr(err).Error("StdIOServer shutting down")
		} else {
			logger.Debug("Input closed, StdIOServer shutting down")
		}
		return err
	}
}

func (s *StdIOServer) readLoop(ctx context.Context, d *Dispatcher, logger observability.Logger) error {
	frames := NewFrameReader(s.maxLineBytes)
	buf := make([]byte, readChunkSize)

	for {
		n, rerr := s.in.Read(buf)
		if n > 0 {
			overflowed := frames.Overflowed
			for _, line := range frames.Feed(buf[:n]) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.HandleFrame(ctx, line)
			}
			if frames.Overflowed > overflowed {
				logger.WithFields(map[string]interface{}{
					"limit": s.maxLineBytes,
				}).Error("Discarding oversized input line")
			}
		}

		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				return fmt.Errorf("read input: %w", rerr)
			}
			if pending := frames.Pending(); pending > 0 {
				logger.Debug(fmt.Sprintf("Discarding %d bytes of unterminated input", pending))
			}
			d.Wait()
			return nil
		}
	}
}

func (s *StdIOServer) drain(d *Dispatcher, logger observability.Logger) {
	defer d.writer.Close()

	drained := make(chan struct{})
	go func() {
		d.Wait()
		close(drained)
	}()

	timer := time.NewTimer(s.drainTimeout)
	defer timer.Stop()

	select {
	case <-drained:
	case <-timer.C:
		logger.Warn(fmt.Sprintf("Tool calls still running after %s, dropping their responses", s.drainTimeout))
	}
}
