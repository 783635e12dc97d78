// Package cli implements wastecli, a command-line front end to the waste
// analysis pipeline.
package cli

import (
	"encoding/json"
	"io"
	"log"

	config "waste-process-api/configs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
	dataset string
	country string
	cfg     *config.Config
}

// NewRootCmd builds the wastecli command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "wastecli",
		Short:         "Food-waste metrics, history and LLM analysis from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 既定の .env は無くても構わない
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil && cmd.Flags().Changed("env-file") {
					log.Printf("Warning: could not load %s: %v", opts.envFile, err)
				}
			}
			opts.cfg = config.LoadConfig()
			if opts.dataset != "" {
				opts.cfg.DatasetPath = opts.dataset
			}
			if opts.country != "" {
				opts.cfg.DefaultCountry = opts.country
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.dataset, "dataset", "", "dataset location (overrides DATASET_PATH)")
	cmd.PersistentFlags().StringVar(&opts.country, "country", "", "country (overrides DEFAULT_COUNTRY)")

	cmd.AddCommand(newMetricsCmd(opts), newHistoryCmd(opts), newAnalyzeCmd(opts), newPingCmd(opts))
	return cmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
