package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// MaxMessageSize bounds a single line-delimited message.
const MaxMessageSize = 16 << 20

// Serve runs one stdio session: it reads newline-delimited messages from in
// and writes one response line per request to out. It returns nil at EOF.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	sess := s.OpenSession(types.TransportStdio)
	defer s.CloseSession(sess)

	s.logger.Info("MCP session started",
		zap.String("session_id", sess.ID),
		zap.String("transport", string(sess.Transport)),
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	w := bufio.NewWriter(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.Handle(ctx, sess, line)
		if resp == nil {
			continue
		}
		if _, err := w.Write(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	s.logger.Info("MCP session ended",
		zap.String("session_id", sess.ID),
		zap.Duration("duration", time.Since(sess.Started)),
	)
	return nil
}
