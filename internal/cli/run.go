package cli

import (
	"os"
	"time"

	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/kyson-dev/sub-optimizer/internal/pipeline"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, fix and save the subscription once",
		Long: `Fetch the subscription from $SUB_URL (or --url), apply compatibility fixes,
optionally inject the DNS optimization and write the result.

A failed fetch keeps the previous output and exits 0. A missing subscription
url exits 2.`,
		RunE: runPipeline,
	}

	cmd.Flags().String("url", "", "Subscription url (overrides $SUB_URL)")
	cmd.Flags().StringP("output", "o", runtime.DefaultOutputPath, "Output file path")
	cmd.Flags().Bool("inject-dns", false, "Inject the domestic url-test DNS group")
	cmd.Flags().Duration("timeout", runtime.DefaultTimeout, "Fetch timeout")
	cmd.Flags().String("proxy-detour", runtime.DefaultProxyDetour, "Outbound tag used by the foreign DNS server")
	cmd.Flags().String("user-agent", "", "User-Agent sent to the subscription server")

	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	opts, err := loadRunOptions(cmd)
	if err != nil {
		return &pipeline.Error{Stage: pipeline.StageConfig, Err: err}
	}

	result, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		if pipeline.StageOf(err) == pipeline.StageFetch {
			logger.Warn("Failed to fetch or parse subscription", "error", err)
			logger.Warn("Skipping this update, previous config is kept")
		}
		return err
	}

	logger.Info("Optimized config saved", "path", result.Path, "modules", result.Modules)
	return nil
}

// loadRunOptions 叠加顺序：默认值 < 配置文件 < 环境变量 < 命令行
func loadRunOptions(cmd *cobra.Command) (runtime.RunOptions, error) {
	opts, err := runtime.LoadOptions(OptionsFile)
	if err != nil {
		return opts, err
	}
	if err := opts.ApplyEnv(os.LookupEnv); err != nil {
		return opts, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		opts.SourceURL, _ = flags.GetString("url")
	}
	if flags.Changed("output") {
		opts.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("inject-dns") {
		opts.InjectDNS, _ = flags.GetBool("inject-dns")
	}
	if flags.Changed("timeout") {
		var timeout time.Duration
		timeout, _ = flags.GetDuration("timeout")
		if timeout > 0 {
			opts.Timeout = timeout
		}
	}
	if flags.Changed("proxy-detour") {
		opts.ProxyDetour, _ = flags.GetString("proxy-detour")
	}
	if flags.Changed("user-agent") {
		opts.UserAgent, _ = flags.GetString("user-agent")
	}
	return opts, nil
}
