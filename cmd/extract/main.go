// Command extract runs the upload checks and text extraction used by the
// generator against local PDFs and writes the text next to them.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"orpheus_go_backend/internal/logging"
	"orpheus_go_backend/internal/services"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

type options struct {
	OutDir   string `short:"o" long:"out" default:"test_texts" description:"Directory for the extracted .txt files"`
	MaxPages int    `long:"max-pages" default:"100" description:"Reject PDFs with more pages"`
	Args     struct {
		Files []string `positional-arg-name:"pdf" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger, err := logging.Setup("info", "console", os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", opts.OutDir).Msg("Error creating output directory")
	}

	extractor := services.NewContentExtractionService(opts.MaxPages)
	failed := 0
	for _, path := range opts.Args.Files {
		if err := extractFile(extractor, path, opts.OutDir, logger); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("Extraction failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func extractFile(extractor *services.ContentExtractionService, path, outDir string, logger zerolog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := extractor.Validate(data); err != nil {
		return err
	}
	text, err := extractor.ExtractText(data)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".txt"
	out := filepath.Join(outDir, name)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	logger.Info().Str("file", path).Str("out", out).Int("chars", len(text)).Msg("Text extracted")
	return nil
}
