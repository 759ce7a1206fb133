package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Compressor streams src into dst in compressed form.
type Compressor interface {
	Compress(ctx context.Context, dst io.Writer, src io.Reader) error
	Name() string
}

// NewCompressor returns an external compressor for argv, or in-process gzip
// when argv is empty.
func NewCompressor(argv []string) Compressor {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return GzipCompressor{Level: gzip.DefaultCompression}
	}
	return CommandCompressor{Argv: append([]string(nil), argv...)}
}

// CommandCompressor pipes data through an external program such as pigz that
// reads stdin and writes stdout.
type CommandCompressor struct {
	Argv []string
}

func (c CommandCompressor) Name() string { return c.Argv[0] }

func (c CommandCompressor) Compress(ctx context.Context, dst io.Writer, src io.Reader) error {
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stdin = src
	cmd.Stdout = dst
	cmd.Stderr = &limitedBuffer{buf: &stderr, max: 4096}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", c.Argv[0], err)
	}
	return nil
}

// GzipCompressor compresses in-process.
type GzipCompressor struct {
	Level int
}

func (GzipCompressor) Name() string { return "gzip" }

func (g GzipCompressor) Compress(ctx context.Context, dst io.Writer, src io.Reader) error {
	zw, err := gzip.NewWriterLevel(dst, g.Level)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	if _, err := io.Copy(zw, contextReader{ctx: ctx, r: src}); err != nil {
		_ = zw.Close()
		return fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
