// configgen writes or validates the link configuration TOML.
package main

import (
	"flag"
	"log"

	"asebalink/internal/config"
)

func main() {
	output := flag.String("output", "config.toml", "output path for the config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite an existing config file")
	flag.Parse()

	if *validate {
		if _, err := config.LoadLinkConfig(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated link config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote link config template to %s", *output)
}
