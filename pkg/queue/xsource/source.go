// Package xsource 定义队列 loader 的条目来源。
package xsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrStopped 由 emit 返回，表示 loader 已被要求停止，Source 应尽快返回。
var ErrStopped = errors.New("xsource: loader stopped")

// Source 产生条目并逐个交给 emit。emit 返回错误时 Source 应停止并返回该错误。
// ctx 在 loader 被强制停止时取消。
type Source[T any] func(ctx context.Context, emit func(T) error) error

// Slice 依次产出 items。
func Slice[T any](items ...T) Source[T] {
	return func(ctx context.Context, emit func(T) error) error {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(item); err != nil {
				return err
			}
		}
		return nil
	}
}

// Lines 按行读取 path，跳过空行和以 # 开头的行，去掉首尾空白。
// 每次运行重新打开文件。
func Lines(path string) Source[string] {
	return func(ctx context.Context, emit func(string) error) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("xsource: open %s: %w", path, err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := emit(line); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("xsource: read %s: %w", path, err)
		}
		return nil
	}
}
