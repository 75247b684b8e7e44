package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xqueue/pkg/config/xconf"
	"github.com/omeyang/xqueue/pkg/lifecycle/xcycle"
	"github.com/omeyang/xqueue/pkg/lifecycle/xrun"
)

// exitError 表示命令已完成输出，只需设置非零退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func createCommands() []*cli.Command {
	return []*cli.Command{
		createRunCommand(),
		createValidateCommand(),
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "配置文件路径（.yaml/.yml/.json）",
	}
}

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "加载配置并运行队列",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "once",
				Usage: "每个队列只运行一个周期后退出",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, settings, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			return cmdRun(ctx, cfg, settings, cmd.Bool("once"), cmd.Root().ErrWriter)
		},
	}
}

func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "校验配置文件",
		Flags: []cli.Flag{configFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdValidate(cmd.String("config"), cmd.Root().Writer)
		},
	}
}

// loadConfig 读取配置并解析 Settings。
func loadConfig(path string) (xconf.Config, *xconf.Settings, error) {
	if path == "" {
		return nil, nil, &usageError{msg: "missing required flag --config"}
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return nil, nil, err
	}
	settings, err := xconf.LoadSettings(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := validateSchedules(settings); err != nil {
		return nil, nil, err
	}
	return cfg, settings, nil
}

func validateSchedules(s *xconf.Settings) error {
	var errs []error
	for _, q := range s.Queues {
		if q.Schedule == "" {
			continue
		}
		if err := xcycle.ValidateSchedule(q.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("%w: queue %q: %w", xconf.ErrInvalidSettings, q.Name, err))
		}
	}
	return errors.Join(errs...)
}

// cmdValidate 校验配置，问题逐行输出，校验失败时退出码 1。
func cmdValidate(path string, out io.Writer) error {
	_, settings, err := loadConfig(path)
	if err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return err
		}
		fmt.Fprintf(out, "配置无效: %s\n", path)
		// errors.Join 的结果每行一个问题。
		for line := range strings.SplitSeq(err.Error(), "\n") {
			fmt.Fprintf(out, "  - %s\n", line)
		}
		return &exitError{code: 1}
	}

	fmt.Fprintf(out, "配置有效: %s (%d queues)\n", path, len(settings.Queues))
	for _, q := range settings.Queues {
		schedule := q.Schedule
		if schedule == "" {
			schedule = "once"
		}
		fmt.Fprintf(out, "  %-20s backend=%-6s schedule=%s source=%s\n", q.Name, q.Backend, schedule, q.Source)
	}
	return nil
}

// cmdRun 构建运行时并执行，收到信号退出视为成功。
func cmdRun(ctx context.Context, cfg xconf.Config, settings *xconf.Settings, once bool, logOut io.Writer) error {
	rt, err := newRuntime(settings, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	if once {
		err = rt.runOnce(ctx)
	} else {
		err = rt.serve(ctx, cfg)
	}
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}
