package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/zerologr"
	"github.com/memes/primes/pkg/stream"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	AppName     = "primes"
	PackageName = "github.com/memes/primes/cmd/primes"
)

var (
	// Version is updated from git tags during build.
	version = "unspecified"
)

func NewRootCmd() (*cobra.Command, error) {
	cobra.OnInitialize(initConfig)
	rootCmd := &cobra.Command{
		Use:     AppName,
		Version: version,
		Short:   "Generate and verify prime numbers over arbitrary ranges",
		Long: `Generates every prime in a range with a segmented parallel sieve, scans ranges beyond 64 bits with a configurable Miller-Rabin test, and re-verifies generated output with a Baillie-PSW check.

Bounds are given as decimal strings so that arbitrary-precision ranges can be expressed.`,
	}
	rootCmd.PersistentFlags().CountP("verbose", "v", "Enable verbose logging; can be repeated to increase verbosity")
	rootCmd.PersistentFlags().BoolP("pretty", "p", false, "Disables structured JSON logging to stdout, making it easier to read")
	rootCmd.PersistentFlags().String("min", "1", "The inclusive lower bound of the range, as a decimal string")
	rootCmd.PersistentFlags().String("max", "1000000", "The inclusive upper bound of the range, as a decimal string")
	rootCmd.PersistentFlags().StringP("format", "f", "plain", "The output format to use; one of plain, csv, or json")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "An optional directory to write output files to")
	rootCmd.PersistentFlags().Uint64("split", 0, "Rotate to a new output file after this many primes; 0 disables splitting")
	rootCmd.PersistentFlags().Int("buffer-size", stream.DefaultBufferSize, "The size, in bytes, of the output write buffer")
	for _, name := range []string{"verbose", "pretty", "min", "max", "format", "output-dir", "split", "buffer-size"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", name, err)
		}
	}
	generateCmd, err := NewGenerateCmd()
	if err != nil {
		return nil, err
	}
	scanCmd, err := NewScanCmd()
	if err != nil {
		return nil, err
	}
	verifyCmd, err := NewVerifyCmd()
	if err != nil {
		return nil, err
	}
	rootCmd.AddCommand(generateCmd, scanCmd, verifyCmd)
	return rootCmd, nil
}

// Determine the outcome of command line flags, environment variables, and an
// optional configuration file to perform initialization of the application. An
// appropriate zerolog will be assigned as the default logr sink.
func initConfig() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zl := zerolog.New(os.Stderr).With().Caller().Timestamp().Logger()
	viper.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName("." + AppName)
	viper.SetEnvPrefix(AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	verbosity := viper.GetInt("verbose")
	switch {
	case verbosity > 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
	if viper.GetBool("pretty") {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger = zerologr.New(&zl)
	if err == nil {
		return
	}
	var cfgNotFound viper.ConfigFileNotFoundError
	if !errors.As(err, &cfgNotFound) {
		logger.Error(err, "Error reading configuration file")
	}
}

// Builds the output descriptor shared by the generate and scan commands.
func outputDescriptor() (stream.Descriptor, error) {
	format, err := stream.ParseFormat(viper.GetString("format"))
	if err != nil {
		return stream.Descriptor{}, err
	}
	return stream.Descriptor{
		Directory:      viper.GetString("output-dir"),
		Format:         format,
		SplitThreshold: viper.GetUint64("split"),
		BufferSize:     viper.GetInt("buffer-size"),
	}, nil
}
