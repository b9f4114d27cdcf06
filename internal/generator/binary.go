package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// 失败时仅记录输出末尾部分，避免日志被大段编译错误淹没。
const outputTailBytes = 4096

// BinaryRunner 通过 os/exec 调用外部生成器，默认即 typedoc。
type BinaryRunner struct {
	Command   []string
	ExtraArgs []string
	Dir       string
	Logger    *logrus.Logger
}

// Run 执行 Command[0] Command[1:]... ExtraArgs... args...，并将进程退出码映射为 ExitCode。
func (b *BinaryRunner) Run(ctx context.Context, args []string) (ExitCode, error) {
	if len(b.Command) == 0 || b.Command[0] == "" {
		return ExceptionThrown, errors.New("generator command is empty")
	}

	argv := make([]string, 0, len(b.Command)-1+len(b.ExtraArgs)+len(args))
	argv = append(argv, b.Command[1:]...)
	argv = append(argv, b.ExtraArgs...)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, b.Command[0], argv...)
	cmd.Dir = b.Dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	b.entry().WithFields(logrus.Fields{"action": "generator_start", "command": b.Command[0], "args": argv}).Debug("启动文档生成器")

	err := cmd.Run()
	if err == nil {
		return Ok, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ExceptionThrown, ctxErr
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExceptionThrown, fmt.Errorf("start generator %s: %w", b.Command[0], err)
	}

	code := FromProcessExit(exitErr.ExitCode())
	b.entry().WithFields(logrus.Fields{
		"action":    "generator_exit",
		"command":   b.Command[0],
		"exit_code": exitErr.ExitCode(),
		"result":    code.String(),
		"output":    tail(output.Bytes(), outputTailBytes),
	}).Warn("文档生成器退出码非零")
	return code, nil
}

func (b *BinaryRunner) entry() *logrus.Entry {
	if b.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logrus.NewEntry(b.Logger)
}

func tail(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[len(data)-limit:])
}
