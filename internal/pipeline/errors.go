package pipeline

import "errors"

type Stage string

const (
	StageConfig Stage = "config"
	StageFetch  Stage = "fetch"
	StageBuild  Stage = "build"
	StageWrite  Stage = "write"
)

// 进程退出码
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "pipeline failed at " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageOf 返回错误所在阶段，非 pipeline 错误返回空字符串
func StageOf(err error) Stage {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

// ExitCode 把 Run 的结果翻译成退出码
// 拉取失败不算失败：保留上一次的输出，调度器不需要重试或告警
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch StageOf(err) {
	case StageFetch:
		return ExitOK
	case StageConfig:
		return ExitConfigError
	default:
		return ExitFailure
	}
}
