package timeutil

import (
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp 解析前端或数据库中常见的时间格式，无时区信息按 UTC 处理
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Normalize(t), true
		}
	}
	return time.Time{}, false
}

// FromEpochMillis 毫秒时间戳转时间
func FromEpochMillis(ms int64) time.Time {
	return Normalize(time.UnixMilli(ms))
}

// Normalize 统一为 UTC 毫秒精度
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// AddMonths 按自然月顺延，月末溢出时与日历进位一致（1 月 31 日 + 1 月 = 3 月初）
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// Later 返回较晚的时间
func Later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
