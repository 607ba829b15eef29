package main

import (
	"flag"
	"log"

	"github.com/danmuck/schemawire/internal/config"
)

func main() {
	kind := flag.String("kind", "framectl", "template kind: framectl|schemas")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file and compile its schemas")
	input := flag.String("input", "cmd/framectl/config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		reg, err := cfg.Registry()
		if err != nil {
			log.Fatal(err)
		}
		if _, err := cfg.Layout(); err != nil {
			log.Fatal(err)
		}
		for _, w := range reg.Warnings() {
			log.Printf("warning: %v", w)
		}
		log.Printf("Validated config at %s (%d schemas)", *input, reg.Len())
		return
	}

	target := *output
	if target == "" {
		path, err := config.DefaultPath(*kind)
		if err != nil {
			log.Fatal(err)
		}
		target = path
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s template to %s", *kind, target)
}
