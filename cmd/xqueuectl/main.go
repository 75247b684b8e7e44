// xqueuectl 按配置文件运行命名队列的重建周期。
//
// 用法:
//
//	xqueuectl <命令> [命令参数]
//
// 命令:
//
//	run        加载配置并运行队列（--once 每个队列只运行一个周期）
//	validate   校验配置文件
//
// 退出码:
//
//	0: 成功（run 模式下收到 SIGINT/SIGTERM 正常退出也为 0）
//	1: 运行失败或配置校验失败
//	2: 参数错误（缺少 --config、未知 flag、未知命令等）
//
// 示例:
//
//	xqueuectl validate --config queues.yaml
//	xqueuectl run --config queues.yaml --once
//	xqueuectl run -c queues.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xqueuectl",
		Usage:     "命名队列生命周期管理工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands:  createCommands(),
		// 由 run 统一映射退出码，禁止 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
		Description: `xqueuectl 读取队列定义（memory 或 redis 后端），为每个队列创建
生命周期管理器，并按 cron 表达式周期性地重建队列内容。

同一份配置中的队列名必须唯一，同一进程内同名队列同时只能有一个处于初始化状态。`,
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 判断错误是否来自 urfave/cli 的参数解析。
func isCLIUsageError(err error) bool {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
		"Required flag",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
