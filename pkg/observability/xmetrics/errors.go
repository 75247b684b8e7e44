package xmetrics

import "errors"

// ErrInstrument 表示 NewOTelObserver 无法创建指标仪表。
var ErrInstrument = errors.New("xmetrics: create instrument")
