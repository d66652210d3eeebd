package logger

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronLogger 将 logrus 日志条目适配为 cron.Logger。
// cron 的 Info 日志非常频繁（每次调度都会输出），因此降级为 Debug。
type CronLogger struct {
	entry *logrus.Entry
}

// NewCronLogger 创建 cron 日志适配器
func NewCronLogger(entry *logrus.Entry) *CronLogger {
	if entry == nil {
		entry = WithComponent("cron")
	}
	return &CronLogger{entry: entry}
}

// Info 实现 cron.Logger
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

// Error 实现 cron.Logger
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).WithError(err).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

var _ cron.Logger = (*CronLogger)(nil)
