package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	config "waste-process-api/configs"
	"waste-process-api/pkg/models"
	"waste-process-api/pkg/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// inputFlags collects a WasteInput from command-line flags.
type inputFlags struct {
	category       string
	purchased      float64
	wasted         float64
	value          float64
	sales          float64
	storageTemp    float64
	rotation       string
	leadTime       float64
	orderFrequency string
	shelfLife      float64
	context        string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.category, "category", "", "food category (required)")
	fs.Float64Var(&f.purchased, "purchased", 0, "purchased tons (required)")
	fs.Float64Var(&f.wasted, "wasted", 0, "wasted tons (required)")
	fs.Float64Var(&f.value, "value", 0, "total purchase value in COP (required)")
	fs.Float64Var(&f.sales, "sales", 0, "sales volume")
	fs.Float64Var(&f.storageTemp, "storage-temp", 0, "storage temperature in °C")
	fs.StringVar(&f.rotation, "rotation", "", "stock rotation method, e.g. FIFO")
	fs.Float64Var(&f.leadTime, "lead-time", 0, "supplier lead time in days")
	fs.StringVar(&f.orderFrequency, "order-frequency", "", "order frequency, e.g. semanal")
	fs.Float64Var(&f.shelfLife, "shelf-life", 0, "shelf life in days")
	fs.StringVar(&f.context, "context", "", "free-form additional context")
	for _, name := range []string{"category", "purchased", "wasted", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// build converts the flags into a WasteInput. Optional fields are set only
// when their flag was given explicitly.
func (f *inputFlags) build(cmd *cobra.Command, country string) models.WasteInput {
	changed := cmd.Flags().Changed
	optFloat := func(name string, v float64) *float64 {
		if !changed(name) {
			return nil
		}
		return &v
	}
	optString := func(name, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}

	purchased, wasted, value := f.purchased, f.wasted, f.value
	return models.WasteInput{
		Country:            country,
		Category:           f.category,
		PurchasedTons:      &purchased,
		WastedTons:         &wasted,
		TotalValue:         &value,
		SalesVolume:        optFloat("sales", f.sales),
		StorageTemperature: optFloat("storage-temp", f.storageTemp),
		RotationMethod:     optString("rotation", f.rotation),
		LeadTimeDays:       optFloat("lead-time", f.leadTime),
		OrderFrequency:     optString("order-frequency", f.orderFrequency),
		ShelfLifeDays:      optFloat("shelf-life", f.shelfLife),
		AdditionalContext:  optString("context", f.context),
	}
}

func newMetricsCmd(opts *rootOptions) *cobra.Command {
	in := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute waste percentage, economic loss and ratios locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := in.build(cmd, opts.cfg.DefaultCountry)
			metrics, err := services.CalculateInputMetrics(input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), metrics)
		},
	}
	in.register(cmd)
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the historical rows for a country and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := services.NewHistoryFromConfig(opts.cfg)
			if err != nil {
				return err
			}
			records, err := history.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), services.FilterHistory(records, opts.cfg.DefaultCountry, category))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "food category (required)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	in := &inputFlags{}
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full LLM analysis for one purchase/waste report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx = services.WithRequestID(ctx, uuid.NewString())

			input := in.build(cmd, opts.cfg.DefaultCountry)
			if dryRun {
				return printPrompt(ctx, cmd, opts, input)
			}

			if err := opts.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			svc, err := services.NewProcessServiceFromConfig(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			start := time.Now()
			out, err := svc.Process(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "analysis finished in %v\n", time.Since(start).Round(time.Millisecond))
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the prompt instead of calling the model")
	return cmd
}

// printPrompt renders the prompt without needing LLM credentials.
func printPrompt(ctx context.Context, cmd *cobra.Command, opts *rootOptions, input models.WasteInput) error {
	metrics, err := services.CalculateInputMetrics(input)
	if err != nil {
		return err
	}
	history, err := services.NewHistoryFromConfig(opts.cfg)
	if err != nil {
		return err
	}
	records, err := history.Load(ctx)
	if err != nil {
		return err
	}
	persona, err := config.LoadSystemPrompt(opts.cfg.SystemPromptPath)
	if err != nil {
		return err
	}
	builder, err := services.NewPromptBuilder(persona)
	if err != nil {
		return err
	}
	prompt, err := builder.Build(input, metrics, services.FilterHistory(records, input.Country, input.Category))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "=== system ===\n%s\n=== user ===\n%s", prompt.System, prompt.User)
	return nil
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a minimal prompt to the configured LLM provider to check credentials and proxy settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			gateway, err := services.NewGatewayFromConfig(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			start := time.Now()
			reply, err := gateway.Complete(cmd.Context(), "Responde únicamente con la palabra OK.", "ping")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provider=%s latency=%v reply=%q\n", opts.cfg.LLMProvider, time.Since(start).Round(time.Millisecond), reply)
			return nil
		},
	}
}
