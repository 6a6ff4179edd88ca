package cli

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ixado/ixado/internal/config"
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/logging"
)

// logFileWriter holds the rotating file writer for shutdown cleanup.
var (
	logFileMu     sync.Mutex     //nolint:gochecknoglobals // Needed for cleanup
	logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup
)

// InitLogger builds the CLI logger: console output on stderr plus a rotating,
// redaction-filtered file under <project>/.ixado/. File writer failures fall
// back to console-only logging.
func InitLogger(projectRoot string, cfg config.LoggingConfig, verbose, quiet bool) zerolog.Logger {
	writer := selectConsole()

	if cfg.File {
		if fw, err := newLogFileWriter(projectRoot, cfg); err == nil {
			logFileMu.Lock()
			logFileWriter = fw
			logFileMu.Unlock()
			writer = zerolog.MultiLevelWriter(writer, fw)
		}
	}

	return zerolog.New(writer).
		Level(selectLevel(cfg.Level, verbose, quiet)).
		With().Timestamp().Logger()
}

// CloseLogFile closes the rotating file writer if one was opened.
func CloseLogFile() {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel resolves the log level. Flags override the configured level.
func selectLevel(configured string, verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	}
	if level, err := zerolog.ParseLevel(configured); err == nil && level != zerolog.NoLevel {
		return level
	}
	return zerolog.InfoLevel
}

// selectConsole picks pretty console output on a TTY, JSON otherwise.
func selectConsole() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}

// filteringWriteCloser pairs the redaction filter with the rotating writer's
// closer so the file can be flushed on shutdown.
type filteringWriteCloser struct {
	filter *logging.FilteringWriter
	closer io.Closer
}

func (fwc *filteringWriteCloser) Write(p []byte) (int, error) {
	return fwc.filter.Write(p)
}

func (fwc *filteringWriteCloser) Close() error {
	return fwc.closer.Close()
}

// newLogFileWriter creates the rotating file writer under the project
// directory, wrapped with sensitive-data redaction.
func newLogFileWriter(projectRoot string, cfg config.LoggingConfig) (io.WriteCloser, error) {
	dir := filepath.Join(projectRoot, constants.ProjectDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, constants.LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return &filteringWriteCloser{
		filter: logging.NewFilteringWriter(lj),
		closer: lj,
	}, nil
}
