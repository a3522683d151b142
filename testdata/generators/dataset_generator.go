// Standalone dataset generator, equivalent to 'reconciler generate-testdata'
// but runnable directly during development:
//
//	go run testdata/generators/dataset_generator.go -output-dir ./data -invoices 500
package main

import (
	"flag"
	"fmt"
	"os"

	"invoice-reconciliation-service/internal/generator"
)

func main() {
	var (
		outputDir      = flag.String("output-dir", "../generated", "Output directory for generated files")
		invoices       = flag.Int("invoices", 200, "Number of invoices to generate")
		seed           = flag.Int64("seed", 7, "Seed for the clean ledger")
		corruptionSeed = flag.Int64("corruption-seed", 99, "Seed for injected anomalies")
	)
	flag.Parse()

	cfg := generator.DefaultConfig()
	cfg.Invoices = *invoices
	cfg.Seed = *seed
	cfg.CorruptionSeed = *corruptionSeed

	if err := generator.Generate(cfg, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d invoices in %s\n", *invoices, *outputDir)
}
