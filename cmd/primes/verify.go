package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/memes/primes/pkg/verify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const VerifyServiceName = "verify"

// Implements the verify sub-command which re-checks a previously generated
// plain-format output file with the Baillie-PSW test.
func NewVerifyCmd() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   VerifyServiceName + " [file]",
		Short: "Re-verify a generated prime list with a Baillie-PSW test",
		Long:  `Reads a plain-format prime list, re-checks every entry, and reports every composite or unparseable entry found. Defaults to primes.txt in the output directory when no file is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  verifyMain,
	}, nil
}

// Verify sub-command entrypoint.
func verifyMain(_ *cobra.Command, args []string) error {
	path := filepath.Join(viper.GetString("output-dir"), "primes.txt")
	if len(args) == 1 {
		path = args[0]
	}
	logger := logger.WithValues("path", path)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	verifier := verify.NewVerifier(
		verify.WithLogger(logger),
		verify.WithSink(newLoggingSink(logger)),
	)
	report, err := verifier.Run(ctx, path, nil)
	if err != nil {
		return err
	}
	if len(report.Composites) > 0 {
		return fmt.Errorf("verification found %d bad entries in %s", len(report.Composites), path)
	}
	return nil
}
