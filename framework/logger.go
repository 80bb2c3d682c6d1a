package framework

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger records everything logged for one engine's scenario run, so that the output can
// be shown after the run only if it is wanted (see the -debug and -debug-all flags). If Forward
// is set, each message is also passed through to that logger as it arrives.
type CapturingLogger struct {
	Forward Logger
	output  []CapturedMessage
	lock    sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	m := strings.TrimRight(fmt.Sprintln(args...), "\r\n") // Sprintln appends a newline
	l.append(CapturedMessage{Time: time.Now(), Message: m})
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.append(CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
}

func (l *CapturingLogger) append(m CapturedMessage) {
	l.lock.Lock()
	l.output = append(l.output, m)
	forward := l.Forward
	l.lock.Unlock()
	if forward != nil {
		forward.Println(m.Message)
	}
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

func (output CapturedOutput) ToString(prefix string) string {
	ret := ""
	for _, m := range output {
		if ret != "" {
			ret += "\n"
		}
		ret += fmt.Sprintf("%s[%s] %s",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
	return ret
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}

// LineWriter is an io.Writer that sends each complete line of output to a Logger. Lines matching
// any of the exclude patterns are dropped. It is used for the stdout/stderr of driver processes,
// which are much chattier than we want.
type LineWriter struct {
	logger  Logger
	exclude []*regexp.Regexp
	partial []byte
	lock    sync.Mutex
}

var _ io.Writer = (*LineWriter)(nil)

func NewLineWriter(logger Logger, exclude ...*regexp.Regexp) *LineWriter {
	return &LineWriter{logger: logger, exclude: exclude}
}

func (w *LineWriter) Write(data []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.partial = append(w.partial, data...)
	for {
		i := strings.IndexByte(string(w.partial), '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.partial[:i]), "\r")
		w.partial = w.partial[i+1:]
		w.emit(line)
	}
	return len(data), nil
}

func (w *LineWriter) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	for _, r := range w.exclude {
		if r.MatchString(line) {
			return
		}
	}
	w.logger.Println(line)
}
