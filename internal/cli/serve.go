package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kyson-dev/sub-optimizer/internal/pipeline"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	"github.com/kyson-dev/sub-optimizer/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		listen string
		token  string
		path   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the generated config over HTTP",
		Long: `Serve the generated config at /config. Clients must pass the access token
($AUTH_TOKEN, --token or serve.token) as ?token=; without a configured token
every request is refused. Prometheus metrics are exposed at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runtime.LoadOptions(OptionsFile)
			if err != nil {
				return &pipeline.Error{Stage: pipeline.StageConfig, Err: err}
			}
			if err := opts.ApplyEnv(os.LookupEnv); err != nil {
				return &pipeline.Error{Stage: pipeline.StageConfig, Err: err}
			}
			if cmd.Flags().Changed("listen") {
				opts.Serve.Listen = listen
			}
			if cmd.Flags().Changed("token") {
				opts.Serve.Token = token
			}
			if cmd.Flags().Changed("path") {
				opts.OutputPath = path
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{
				Listen:     opts.Serve.Listen,
				ConfigPath: opts.OutputPath,
				Token:      opts.Serve.Token,
			}, nil)

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s/config\n", opts.OutputPath, opts.Serve.Listen)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", runtime.DefaultServeListen, "HTTP listen address")
	cmd.Flags().StringVar(&token, "token", "", "Access token (overrides $AUTH_TOKEN)")
	cmd.Flags().StringVarP(&path, "path", "p", runtime.DefaultOutputPath, "Config file to serve")

	return cmd
}
