package model

import (
	"strings"
	"time"
)

// InstrumentKind 交易工具类型，同时也是参考号前缀
type InstrumentKind string

const (
	KindLC       InstrumentKind = "LC"
	KindBG       InstrumentKind = "BG"
	KindDocument InstrumentKind = "DOC"
)

// KindOf 根据参考号前缀识别类型
func KindOf(reference string) InstrumentKind {
	ref := strings.ToUpper(strings.TrimSpace(reference))
	switch {
	case strings.HasPrefix(ref, string(KindLC)):
		return KindLC
	case strings.HasPrefix(ref, string(KindBG)):
		return KindBG
	case strings.HasPrefix(ref, string(KindDocument)):
		return KindDocument
	}
	return ""
}

// Instrument 信用证和保函的公共视图，访问控制和风险/合规模块只依赖这个接口
type Instrument interface {
	Kind() InstrumentKind
	Reference() string
	Creator() string
	Beneficiary() string
	StatusName() string
}

// Date 截断到自然日（UTC 零点），日期字段统一用它比较
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 两个自然日之间的天数，to 早于 from 时为负数
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// appendReason 原因日志只追加不覆盖，格式 "<prev> | <label>: <reason>"
func appendReason(prev, label, reason string) string {
	return prev + " | " + label + ": " + reason
}
