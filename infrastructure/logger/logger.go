package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// logEntry is a single rendered log line together with the level it was
// logged at, queued onto a Backend's writeChan for the backend goroutine
// to fan out to every writer whose threshold it clears.
type logEntry struct {
	level Level
	log   []byte
}

// Logger is a per-subsystem handle obtained from a Backend. Its shape
// (level, tag, owning backend, shared write channel) matches the literal
// Backend.Logger constructs; the formatting methods below are the part
// the retrieved pack didn't include a definition for.
type Logger struct {
	level        Level
	subsystemTag string
	backend      *Backend
	writeChan    chan logEntry
	dropped      atomic.Uint64
}

// SetLevel changes which messages this logger will actually emit.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level reports this logger's current verbosity threshold.
func (l *Logger) Level() Level {
	return l.level
}

// Backend returns the Backend this logger writes through, used by
// util/panics to flush and close every sink before the process exits.
func (l *Logger) Backend() *Backend {
	return l.backend
}

// Dropped reports how many messages this logger has discarded because
// the backend goroutine wasn't keeping up (or wasn't running at all).
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Logger) write(level Level, msg string) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, l.subsystemTag, msg)
	select {
	case l.writeChan <- logEntry{level: level, log: []byte(line)}:
	default:
		// The backend goroutine isn't running (Run was never called), or
		// the channel is momentarily full: drop rather than block the
		// caller. Matches logsBuffer == 0 in backend.go.
		l.dropped.Add(1)
	}
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.write(LevelTrace, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.write(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})     { l.write(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.write(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.write(LevelError, fmt.Sprintf(format, args...)) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.write(LevelCritical, fmt.Sprintf(format, args...)) }

var (
	defaultBackendOnce sync.Once
	defaultBackend     *Backend

	registryMu sync.Mutex
	registry   = make(map[string]*Logger)
)

// DefaultBackend returns the process-wide logger backend, creating it
// (but not starting it) on first use. cmd/bitcoind calls Run() on it once
// flags are parsed and sinks are attached.
func DefaultBackend() *Backend {
	defaultBackendOnce.Do(func() {
		defaultBackend = NewBackend()
	})
	return defaultBackend
}

// RegisterSubSystem returns a Logger for tag, backed by DefaultBackend, and
// records it so SetLogLevels/SupportedSubsystems can find it afterward.
// Matches the package-scope `var log = logger.RegisterSubSystem("TAG")`
// convention every subsystem in the teacher repo declares.
func RegisterSubSystem(tag string) *Logger {
	l := DefaultBackend().Logger(tag)
	registryMu.Lock()
	registry[tag] = l
	registryMu.Unlock()
	return l
}

// SupportedSubsystems lists every tag a RegisterSubSystem call has claimed
// so far, for the `-d show` config flag. Grounded on kasparov/logger's
// loggers slice, generalized to a tag-keyed registry since config.go
// needs the tags, not just the Logger handles.
func SupportedSubsystems() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SetLogLevels applies levelSpec to every registered subsystem. levelSpec
// is either a single level name (applies to all subsystems) or a
// comma-separated list of SUBSYS=level pairs, matching the -d flag's
// documented syntax.
func SetLogLevels(levelSpec string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !strings.Contains(levelSpec, "=") {
		level, ok := LevelFromString(levelSpec)
		if !ok {
			return errors.Errorf("invalid log level %q", levelSpec)
		}
		for _, l := range registry {
			l.SetLevel(level)
		}
		return nil
	}

	for _, pair := range strings.Split(levelSpec, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			return errors.Errorf("invalid subsystem log level pair %q", pair)
		}
		tag, levelStr := fields[0], fields[1]
		l, ok := registry[tag]
		if !ok {
			return errors.Errorf("unknown subsystem %q", tag)
		}
		level, ok := LevelFromString(levelStr)
		if !ok {
			return errors.Errorf("invalid log level %q for subsystem %q", levelStr, tag)
		}
		l.SetLevel(level)
	}
	return nil
}
