package generator

import "context"

// Runner 以给定参数执行生成器。返回的 error 仅用于进程无法启动或观测等内部错误，
// 生成器自身的失败通过 ExitCode 表达。
type Runner interface {
	Run(ctx context.Context, args []string) (ExitCode, error)
}

// RunnerFunc 允许使用普通函数实现 Runner。
type RunnerFunc func(ctx context.Context, args []string) (ExitCode, error)

// Run 调用函数本身。
func (f RunnerFunc) Run(ctx context.Context, args []string) (ExitCode, error) {
	return f(ctx, args)
}

// Strategy 描述一次生成的三个阶段，S 为 Prehook 产出的状态，R 为最终结果。
type Strategy[S, R any] interface {
	Prehook(ctx context.Context) (S, error)
	Args(state S) []string
	Posthook(ctx context.Context, state S) (R, error)
}

// Run 依次执行 Prehook、生成器与 Posthook。Prehook 只调用一次，
// 生成器返回非 Ok 时跳过 Posthook 并返回 *Error。
func Run[S, R any](ctx context.Context, runner Runner, strategy Strategy[S, R]) (R, error) {
	var zero R

	state, err := strategy.Prehook(ctx)
	if err != nil {
		return zero, err
	}

	code, err := runner.Run(ctx, strategy.Args(state))
	if err != nil {
		return zero, err
	}
	if code != Ok {
		return zero, &Error{Code: code}
	}

	return strategy.Posthook(ctx, state)
}
