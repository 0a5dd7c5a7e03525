package startup

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

type CustomFormatter struct {
	counter uint64
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		f.nextID(),
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *CustomFormatter) nextID() string {
	return fmt.Sprintf("ID-%d-%d", time.Now().Unix(), atomic.AddUint64(&f.counter, 1))
}

// NewLogger writes to stdout, or to an hourly rotated file when logFile is set.
func NewLogger(level, logFile string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&CustomFormatter{})
	logger.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if logFile != "" {
		writer, err := rotatelogs.New(
			logFile+"_%Y%m%d%H%M",
			rotatelogs.WithLinkName(logFile),
			rotatelogs.WithRotationTime(time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			return nil, err
		}
		logger.SetOutput(writer)
	}
	return logger, nil
}
