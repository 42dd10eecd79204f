// wavec is the WaveLang compiler command.
//
//	wavec compile <top-level-source-file> [-o <output>]
//
// Exit code 0 on success; non-zero on any diagnostic error. Warnings
// do not fail the build.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/viant/wavelang/compiler"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 || args[0] != "compile" {
		fmt.Fprintln(os.Stderr, "usage: wavec compile <top-level-source-file> [-o <output>]")
		return 2
	}

	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	output := flags.String("o", "", "output instrument file")
	configPath := flags.String("config", "wavec.yaml", "compiler configuration file")
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: wavec compile <top-level-source-file> [-o <output>]")
		return 2
	}
	sourcePath := flags.Arg(0)
	if *output == "" {
		*output = strings.TrimSuffix(sourcePath, ".wl") + ".wli"
	}

	ctx := context.Background()
	config, err := compiler.LoadConfig(ctx, nil, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config '%s': %v\n", *configPath, err)
		return 1
	}

	logger := setupLogger(config)
	c, err := compiler.New(nil,
		compiler.WithLibraryDirs(config.LibraryDirs...),
		compiler.WithDiagnosticWriter(os.Stderr),
		compiler.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result := c.Compile(ctx, sourcePath)
	if result.Instrument == nil {
		logger.Error().
			Int("errors", result.Sink.ErrorCount()).
			Int("warnings", result.Sink.WarningCount()).
			Msg("Compilation failed")
		return 1
	}

	file, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create '%s': %v\n", *output, err)
		return 1
	}
	defer file.Close()
	if err := result.Instrument.Save(file); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write '%s': %v\n", *output, err)
		return 1
	}

	logger.Info().
		Str("output", *output).
		Int("variants", result.Instrument.VariantCount()).
		Int("warnings", result.Sink.WarningCount()).
		Msg("Compilation succeeded")
	return 0
}

func setupLogger(config *compiler.Config) arbor.ILogger {
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: "15:04:05.000",
	})
	level := config.Logging.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}
