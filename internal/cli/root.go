package cli

import (
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/kyson-dev/sub-optimizer/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	GlobalDebug bool
	LogFile     string
	OptionsFile string
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub-optimizer",
		Short: "Fetch a sing-box subscription, fix known schema issues and save it",
		Long: `Fetch a sing-box subscription, fix known schema issues and save it.

Running without a sub command is the same as "sub-optimizer run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logger.Config{Debug: GlobalDebug, FilePath: LogFile})
			return nil
		},
		RunE: runPipeline,
	}

	// bind global flags
	cmd.PersistentFlags().BoolVarP(&GlobalDebug, "debug", "d", false, "Enable debug mode")
	cmd.PersistentFlags().StringVar(&LogFile, "log", "", "Also write logs to this file")
	cmd.PersistentFlags().StringVarP(&OptionsFile, "config", "c", "", "Optional YAML options file")

	// register sub commands
	cmd.AddCommand(
		newVersionCommand(),
		newRunCommand(),
		newServeCommand(),
	)

	return cmd
}

// Execute 运行命令并返回进程退出码
func Execute() int {
	return ExitCode(NewRootCommand().Execute())
}

// ExitCode 打印错误并翻译成退出码
func ExitCode(err error) int {
	if err == nil {
		return pipeline.ExitOK
	}
	code := pipeline.ExitCode(err)
	if code != pipeline.ExitOK {
		logger.Error("Command failed", "error", err)
	}
	return code
}
