package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os/signal"
	"syscall"

	"github.com/memes/primes/pkg/cache"
	"github.com/memes/primes/pkg/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ScanServiceName = "scan"

var errInvalidBound = errors.New("bound is not a non-negative decimal integer")

// Implements the scan sub-command which tests an arbitrary-precision range
// one integer at a time.
func NewScanCmd() (*cobra.Command, error) {
	scanCmd := &cobra.Command{
		Use:   ScanServiceName,
		Short: "Scan an arbitrary-precision range with a probabilistic primality test",
		Long: `Iterates the range one integer at a time, testing each candidate with the configured number of Miller-Rabin rounds. Values that fit in 64 bits are classified deterministically; beyond that a composite survives with probability at most 4^-rounds.

An optional Redis endpoint can be supplied to remember verdicts between runs.`,
		Args: cobra.NoArgs,
		RunE: scanMain,
	}
	scanCmd.PersistentFlags().IntP("rounds", "r", scanner.DefaultRounds, "The number of Miller-Rabin rounds per candidate")
	scanCmd.PersistentFlags().String("redis", "", "An optional Redis endpoint to cache primality verdicts")
	if err := viper.BindPFlag("rounds", scanCmd.PersistentFlags().Lookup("rounds")); err != nil {
		return nil, fmt.Errorf("failed to bind rounds pflag: %w", err)
	}
	if err := viper.BindPFlag("redis", scanCmd.PersistentFlags().Lookup("redis")); err != nil {
		return nil, fmt.Errorf("failed to bind redis pflag: %w", err)
	}
	return scanCmd, nil
}

// Scan sub-command entrypoint.
func scanMain(_ *cobra.Command, _ []string) error {
	low, ok := new(big.Int).SetString(viper.GetString("min"), 10)
	if !ok || low.Sign() < 0 {
		return fmt.Errorf("%w: min=%q", errInvalidBound, viper.GetString("min"))
	}
	high, ok := new(big.Int).SetString(viper.GetString("max"), 10)
	if !ok || high.Sign() < 0 {
		return fmt.Errorf("%w: max=%q", errInvalidBound, viper.GetString("max"))
	}
	out, err := outputDescriptor()
	if err != nil {
		return err
	}
	logger := logger.WithValues("low", low.String(), "high", high.String())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	options := []scanner.ScannerOption{
		scanner.WithLogger(logger),
		scanner.WithSink(newLoggingSink(logger)),
		scanner.WithRounds(viper.GetInt("rounds")),
	}
	if endpoint := viper.GetString("redis"); endpoint != "" {
		options = append(options, scanner.WithCache(cache.NewRedisCache(ctx, endpoint)))
	}
	return scanner.NewScanner(options...).Run(ctx, low, high, out, nil)
}
