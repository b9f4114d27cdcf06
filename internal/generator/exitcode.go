package generator

import "fmt"

// ExitCode 对应生成器进程的退出码。
type ExitCode int

const (
	Ok ExitCode = iota
	OptionError
	NoEntryPoints
	CompileError
	ValidationError
	OutputError
	ExceptionThrown
)

var exitCodeNames = map[ExitCode]string{
	Ok:              "ok",
	OptionError:     "option_error",
	NoEntryPoints:   "no_entry_points",
	CompileError:    "compile_error",
	ValidationError: "validation_error",
	OutputError:     "output_error",
	ExceptionThrown: "exception_thrown",
}

func (c ExitCode) String() string {
	if name, ok := exitCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("exit_code_%d", int(c))
}

// FromProcessExit 将进程退出码映射为 ExitCode，未知或被信号终止的进程视为 ExceptionThrown。
func FromProcessExit(code int) ExitCode {
	if code >= int(Ok) && code <= int(ExceptionThrown) {
		return ExitCode(code)
	}
	return ExceptionThrown
}

// Error 表示生成器以非 Ok 退出码结束。
type Error struct {
	Code   ExitCode
	Output string
}

func (e *Error) Error() string {
	return fmt.Sprintf("generator failed with exit code %d (%s)", int(e.Code), e.Code)
}
