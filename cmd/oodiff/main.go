// Command oodiff compares two Office Open XML documents of the same
// family and writes a marked-up result document plus a change summary.
//
// Usage:
//
//	oodiff compare <doc1> <doc2> [-o output] [-a author] [--json] [--verbose]
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/vortex/ooxml-diff/internal/config"
	"github.com/vortex/ooxml-diff/internal/logger"
	"github.com/vortex/ooxml-diff/pkg/ooxml"
	"github.com/vortex/ooxml-diff/pkg/ooxml/pml"
	"github.com/vortex/ooxml-diff/pkg/ooxml/sml"
	"github.com/vortex/ooxml-diff/pkg/ooxml/wml"
)

var supportedExts = map[string]bool{".docx": true, ".xlsx": true, ".pptx": true}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "oodiff: %v\n", err)
		var cause interface{ Unwrap() error }
		if errors.As(err, &cause) && cause.Unwrap() != nil {
			fmt.Fprintf(os.Stderr, "  caused by: %v\n", cause.Unwrap())
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 || args[0] != "compare" {
		usage()
		return errors.New("expected the compare subcommand")
	}

	flags := flag.NewFlagSet("compare", flag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output path (default comparison-result.<ext>)")
	author := flags.StringP("author", "a", "", "author name stamped on revisions")
	configPath := flags.String("config", "", "config file (default oodiff.yaml when present)")
	asJSON := flags.Bool("json", false, "print the change list as JSON")
	verbose := flags.Bool("verbose", false, "verbose logging")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		usage()
		return errors.New("compare needs exactly two input documents")
	}
	path1, path2 := flags.Arg(0), flags.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *author != "" {
		cfg.Author = *author
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *asJSON {
		cfg.Output.JSON = true
	}
	if *verbose {
		cfg.Verbose = true
	}

	if err := logger.Init(os.Stdout, cfg.LogFile, cfg.Verbose); err != nil {
		return err
	}
	defer logger.Close()

	ext1 := strings.ToLower(filepath.Ext(path1))
	ext2 := strings.ToLower(filepath.Ext(path2))
	if ext1 != ext2 {
		return fmt.Errorf("inputs must share an extension: %s vs %s", ext1, ext2)
	}
	if !supportedExts[ext1] {
		return fmt.Errorf("unsupported extension %q (want .docx, .xlsx, or .pptx)", ext1)
	}

	bar := progressbar.NewOptions(3,
		progressbar.OptionSetDescription("comparing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	doc1, err := os.ReadFile(path1)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path1, err)
	}
	doc2, err := os.ReadFile(path2)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path2, err)
	}
	_ = bar.Add(1)

	result, err := ooxml.Compare(doc1, doc2, buildOptions(cfg))
	if err != nil {
		return err
	}
	_ = bar.Add(1)

	outPath := cfg.Output.Path
	if outPath == "" {
		outPath = "comparison-result" + ext1
	}
	if err := os.WriteFile(outPath, result.Document, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	_ = bar.Add(1)
	_ = bar.Finish()

	report(result, outPath, cfg)
	return nil
}

// buildOptions maps file/flag configuration onto engine settings.
func buildOptions(cfg *config.Config) ooxml.Options {
	w := wml.DefaultSettings()
	w.AuthorForRevisions = cfg.Author
	w.DetailThreshold = cfg.Compare.DetailThreshold
	w.MatchThreshold = cfg.Compare.MatchThreshold

	s := sml.DefaultSettings()
	s.AuthorForChanges = cfg.Author
	s.SheetRenameSimilarityThreshold = cfg.Compare.SheetRenameThreshold
	s.ShowDeletedRows = cfg.Compare.ShowDeletedRows

	p := pml.DefaultSettings()
	p.AuthorForChanges = cfg.Author
	p.ShapeSimilarityThreshold = cfg.Compare.ShapeSimilarity
	p.PositionTolerance = cfg.Compare.PositionToleranceEMU
	p.AddSummarySlide = cfg.Compare.AddSummarySlide
	p.AddNotesAnnotations = cfg.Compare.AddNotesAnnotations

	return ooxml.Options{WML: &w, SML: &s, PML: &p}
}

// report prints the human-readable change summary.
func report(result *ooxml.Result, outPath string, cfg *config.Config) {
	logger.Info("%d change(s): %d insertion(s), %d deletion(s)",
		result.Counters.Total, result.Counters.Insertions, result.Counters.Deletions)
	for _, c := range result.Changes {
		logger.Info("  %-18s %-24s %s", c.Kind, c.Location, c.Summary)
	}
	logger.Info("result written to %s", outPath)

	if cfg.Output.JSON {
		encoded, err := json.MarshalIndent(result.Changes, "", "  ")
		if err != nil {
			logger.Error("encoding change list: %v", err)
			return
		}
		fmt.Println(string(encoded))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: oodiff compare <doc1> <doc2> [flags]

Both documents must share an extension in {.docx, .xlsx, .pptx}.

Flags:
  -o, --output path   output document (default comparison-result.<ext>)
  -a, --author name   author stamped on revisions and comments
      --config path   config file (default oodiff.yaml when present)
      --json          print the change list as JSON
      --verbose       verbose logging`)
}
