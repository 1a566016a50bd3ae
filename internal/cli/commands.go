package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"FinSight/internal/di"
	"FinSight/internal/domain/models"
	"FinSight/pkg/config"
	"FinSight/pkg/util"
)

// NewRootCmd creates the finsight command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "FinSight - volatility forecasts and news sentiment",
		Long: `FinSight trains per-ticker volatility models on daily bars and scores
recent headlines into a decay-weighted sentiment signal.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Configuration file path")

	load := func() (*config.Config, error) {
		return config.LoadWithEnv(configPath)
	}

	rootCmd.AddCommand(newServeCmd(load))
	rootCmd.AddCommand(newTrainCmd(load))
	rootCmd.AddCommand(newForecastCmd(load))
	rootCmd.AddCommand(newSentimentCmd(load))
	return rootCmd
}

type loader func() (*config.Config, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, retrain scheduler and consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func newTrainCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "train TICKER",
		Short: "Run one training cycle and print the model record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, err := models.NormalizeTicker(args[0])
			if err != nil {
				return err
			}
			return withServices(load, func(svc *di.Services) error {
				meta, err := svc.Controller.Train(cmd.Context(), ticker)
				if err != nil {
					return err
				}
				// Params is the serialized forest; the summary omits it.
				out := *meta
				out.Params = nil
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newForecastCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast TICKER",
		Short: "Predict next-day volatility from the stored model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, err := models.NormalizeTicker(args[0])
			if err != nil {
				return err
			}
			return withServices(load, func(svc *di.Services) error {
				res, err := svc.Forecast.GetForecast(cmd.Context(), ticker)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newSentimentCmd(load loader) *cobra.Command {
	var asOfFlag string
	cmd := &cobra.Command{
		Use:   "sentiment TICKER",
		Short: "Summarize recent headline sentiment",
		Long: `Summarize headline sentiment inside the recency window ending at --as-of.
Example: finsight sentiment AAPL --as-of=2024-03-15T16:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, err := models.NormalizeTicker(args[0])
			if err != nil {
				return err
			}
			var asOf *time.Time
			if asOfFlag != "" {
				t, ok := util.ParseTime(asOfFlag)
				if !ok {
					return fmt.Errorf("invalid --as-of %q: want RFC3339, YYYY-MM-DD or unix seconds", asOfFlag)
				}
				asOf = &t
			}
			return withServices(load, func(svc *di.Services) error {
				res, err := svc.Sentiment.GetSentimentSummary(cmd.Context(), ticker, asOf)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "Reference time (now if not provided)")
	return cmd
}

func withServices(load loader, fn func(*di.Services) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer cleanup()
	return fn(svc)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
