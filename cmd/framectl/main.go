package main

import (
	"flag"
	"os"

	"github.com/danmuck/schemawire/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	logger := observability.InitLogger("framectl")
	configPath := flag.String("config", "cmd/framectl/config.toml", "framectl config path")
	mode := flag.String("mode", "decode", "mode: decode|encode|schemas")
	input := flag.String("input", "", "input path (defaults to stdin)")
	output := flag.String("output", "", "output path (defaults to stdout)")
	metrics := flag.Bool("metrics", false, "dump frame metrics to stderr on exit")
	flag.Parse()

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("failed to open input")
		}
		defer f.Close()
		in = f
	}
	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Err(err).Str("path", *output).Msg("failed to create output")
		}
		defer f.Close()
		out = f
	}

	app, err := load(*configPath, logger)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load framectl config")
	}
	log.Info().Str("path", *configPath).Int("schemas", app.registry.Len()).Msg("loaded framectl config")

	if err := app.run(*mode, in, out); err != nil {
		log.Error().Err(err).Str("mode", *mode).Msg("framectl failed")
		if *metrics {
			_ = dumpMetrics(os.Stderr)
		}
		os.Exit(1)
	}
	if *metrics {
		if err := dumpMetrics(os.Stderr); err != nil {
			log.Fatal().Err(err).Msg("failed to dump metrics")
		}
	}
}
