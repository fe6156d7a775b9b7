package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/memes/primes/pkg/generator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const GenerateServiceName = "generate"

// Implements the generate sub-command which runs the segmented parallel
// sieve over a 64-bit range.
func NewGenerateCmd() (*cobra.Command, error) {
	generateCmd := &cobra.Command{
		Use:   GenerateServiceName,
		Short: "Generate every prime in a range with a segmented parallel sieve",
		Long: `Partitions the range into fixed-size windows, sieves the windows across a bounded worker pool, and streams the primes to an output file in ascending order.

The upper bound is limited to the 64-bit range; use the scan sub-command for anything larger. Interrupt with Ctrl-C to stop; a stopped run must be restarted from the beginning.`,
		Args: cobra.NoArgs,
		RunE: generateMain,
	}
	generateCmd.PersistentFlags().Uint64("segment-size", generator.DefaultSegmentSize, "The number of integers per sieve window")
	generateCmd.PersistentFlags().IntP("workers", "w", 0, "The number of concurrent sieve workers; 0 uses every available CPU")
	if err := viper.BindPFlag("segment-size", generateCmd.PersistentFlags().Lookup("segment-size")); err != nil {
		return nil, fmt.Errorf("failed to bind segment-size pflag: %w", err)
	}
	if err := viper.BindPFlag("workers", generateCmd.PersistentFlags().Lookup("workers")); err != nil {
		return nil, fmt.Errorf("failed to bind workers pflag: %w", err)
	}
	return generateCmd, nil
}

// Generate sub-command entrypoint. Validates the bounds, wires SIGINT and
// SIGTERM to run cancellation, and executes the sieve.
func generateMain(_ *cobra.Command, _ []string) error {
	low, err := strconv.ParseUint(viper.GetString("min"), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse min as a 64-bit integer: %w", err)
	}
	high, err := strconv.ParseUint(viper.GetString("max"), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse max as a 64-bit integer: %w", err)
	}
	out, err := outputDescriptor()
	if err != nil {
		return err
	}
	logger := logger.WithValues("low", low, "high", high)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, err := generator.NewGenerator(
		generator.WithLogger(logger),
		generator.WithSink(newLoggingSink(logger)),
		generator.WithSegmentSize(viper.GetUint64("segment-size")),
		generator.WithWorkers(viper.GetInt("workers")),
	)
	if err != nil {
		return err
	}
	return g.Run(ctx, low, high, out, nil)
}
