package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"icegrouper/pkg/config"
	"icegrouper/pkg/icegroup"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "Optional YAML configuration file")
	cpus := flag.Int("cpus", 12, "Number of parallel workers for micrograph segmentation")
	xPatches := flag.Int("x-patches", 40, "Number of patches in the x-direction for the ice grouper")
	yPatches := flag.Int("y-patches", 40, "Number of patches in the y-direction for the ice grouper")
	segments := flag.Int("segments", 16, "Number of ice-thickness segments per micrograph")
	output := flag.String("output", "extract_particles_icegroups.star", "Output STAR file name")
	micrographDir := flag.String("micrograph-dir", "", "Directory to load micrograph images from (default: paths stored in the table)")
	segmentDir := flag.String("save-segments", "", "Directory to save rendered segment images (default: not saved)")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] particles.star\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Assigns ice group labels to particles based on micrograph segmentation.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Validate inputs
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	// Start from the config file (or defaults), then let explicitly set
	// flags take precedence.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cpus":
			cfg.Processing.Workers = *cpus
		case "x-patches":
			cfg.Processing.XPatches = *xPatches
		case "y-patches":
			cfg.Processing.YPatches = *yPatches
		case "segments":
			cfg.Processing.Segments = *segments
		case "output":
			cfg.Output.StarFile = *output
		case "micrograph-dir":
			cfg.Micrographs.Dir = *micrographDir
		case "save-segments":
			cfg.Output.SegmentDir = *segmentDir
		case "quiet":
			cfg.Output.Verbose = !*quiet
		}
	})

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("ICE GROUP ASSIGNMENT FOR EXTRACTED CRYO-EM PARTICLES")
		fmt.Println("================================")
	}

	params := &icegroup.Params{
		InputFile:     inputFile,
		OutputFile:    cfg.Output.StarFile,
		Workers:       cfg.Processing.Workers,
		XPatches:      cfg.Processing.XPatches,
		YPatches:      cfg.Processing.YPatches,
		Segments:      cfg.Processing.Segments,
		MicrographDir: cfg.Micrographs.Dir,
		SegmentDir:    cfg.Output.SegmentDir,
		Verbose:       cfg.Output.Verbose,
	}

	labeler := icegroup.NewLabeler(params)

	startTime := time.Now()
	if err := labeler.Process(); err != nil {
		log.Fatalf("Ice group assignment failed: %v", err)
	}
	processingTime := time.Since(startTime)

	stats := labeler.GetStats()
	fmt.Printf("\nIce group assignment completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Labeled particles written to: %s\n", cfg.Output.StarFile)
	fmt.Printf("Summary: %s\n", icegroup.Summary(stats))
}
