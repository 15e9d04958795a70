package main

import (
	"context"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(NewCmd().ExecuteContext(context.Background()))
}

// NewCmd returns fos root command
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "fos [command] [flags]",
		Short:         "fos runs filters of optimal structure",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "`<Level>` of log messages: debug, info, warn, error")

	runCmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Run filter configured in a YAML file",
		RunE:  doRun,
	}
	runCmd.Args = cobra.NoArgs
	runCmd.Flags().StringP("config", "c", "", "`<Path>` to the run configuration")
	runCmd.Flags().StringP("plot", "p", "", "`<Path>` of the PNG plot of the results")
	runCmd.Flags().Int("component", 0, "`<Index>` of the plotted state component")
	runCmd.Flags().Bool("reference", false, "compare error covariance with Kalman filter of a linear task")
	runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)

	return rootCmd
}
