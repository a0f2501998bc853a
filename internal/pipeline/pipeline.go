// Package pipeline wires fetch, compatibility fixes, optional DNS injection
// and the atomic write into a single run.
package pipeline

import (
	"context"
	"errors"

	"github.com/kyson-dev/sub-optimizer/internal/config"
	"github.com/kyson-dev/sub-optimizer/internal/exporter"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	"github.com/kyson-dev/sub-optimizer/internal/subscription"
)

var ErrMissingSourceURL = errors.New("subscription url is not set (" + runtime.EnvSourceURL + ")")

// Result 描述一次成功的运行
type Result struct {
	Path    string
	Bytes   int
	Modules []string
	Context *config.BuildContext
}

// Run 执行一次完整流程，任何失败都不会写出文件
func Run(ctx context.Context, opts runtime.RunOptions) (Result, error) {
	if opts.SourceURL == "" {
		return Result{}, &Error{Stage: StageConfig, Err: ErrMissingSourceURL}
	}
	if opts.OutputPath == "" {
		opts.OutputPath = runtime.DefaultOutputPath
	}

	logger.Info("Fetching subscription...", "timeout", opts.Timeout)
	doc, err := subscription.FetchDocument(ctx, subscription.Request{
		URL:       opts.SourceURL,
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
	})
	if err != nil {
		return Result{}, &Error{Stage: StageFetch, Err: err}
	}
	logger.Info("Subscription fetched and parsed")

	doc, buildCtx, err := config.Apply(doc, &opts)
	if err != nil {
		return Result{}, &Error{Stage: StageBuild, Err: err}
	}

	data, err := exporter.Write(opts.OutputPath, doc)
	if err != nil {
		return Result{}, &Error{Stage: StageWrite, Err: err}
	}

	return Result{
		Path:    opts.OutputPath,
		Bytes:   len(data),
		Modules: buildCtx.Modules,
		Context: buildCtx,
	}, nil
}
