package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	BackendLogrus = "logrus"
	BackendZap    = "zap"
)

// SinkOptions configures a file-backed log sink.
type SinkOptions struct {
	Dir     string
	File    string
	Level   Level
	Backend string
	// Console tees every record to Stderr as well as the file.
	Console bool
	Stderr  io.Writer
}

// FileSink is a Logger writing to a log file that is truncated on open.
type FileSink struct {
	Logger
	Path string
	file *os.File
	out  *closableWriter
}

// closableWriter discards writes once closed, so records logged after Close
// do not hit a closed file.
type closableWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func (c *closableWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return len(p), nil
	}
	return c.w.Write(p)
}

func (c *closableWriter) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// NewFileSink creates the log directory if needed, truncates the log file and
// returns a Logger writing to it.
func NewFileSink(opts SinkOptions) (*FileSink, error) {
	if opts.File == "" {
		opts.File = "debug.log"
	}
	if opts.Dir == "" {
		opts.Dir = ".logs"
	}
	if opts.Level == "" {
		opts.Level = LevelDebug
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", opts.Dir, err)
	}

	path := filepath.Join(opts.Dir, opts.File)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	var w io.Writer = f
	if opts.Console {
		w = io.MultiWriter(f, opts.Stderr)
	}

	out := &closableWriter{w: w}
	logger, err := newBackend(opts.Backend, opts.Level, out)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &FileSink{Logger: logger, Path: path, file: f, out: out}, nil
}

// Close flushes and closes the underlying log file.
func (s *FileSink) Close() error {
	if z, ok := s.Logger.(*ZapLogger); ok {
		_ = z.logger.Sync()
	}
	s.out.close()
	return s.file.Close()
}

// NewWriterLogger builds a Logger of the given backend writing to w.
func NewWriterLogger(backend string, level Level, w io.Writer) (Logger, error) {
	return newBackend(backend, level, w)
}

func newBackend(backend string, level Level, w io.Writer) (Logger, error) {
	switch backend {
	case "", BackendLogrus:
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(LogrusLevel(level))
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
		return NewLogrusLogger(l), nil
	case BackendZap:
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), ZapLevel(level))
		return NewZapLogger(zap.New(core)), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
