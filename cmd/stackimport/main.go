// Command stackimport reads a legacy stack-document file and writes its
// decoded project directory alongside it.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	stackimport "github.com/soypat/stackimport"
)

func main() {
	cfg := stackimport.DefaultConfig()
	flag.BoolVar(&cfg.DumpRawBlocks, "dump-raw-blocks", false, "also write <TYPE>_<id>.data for every block")
	flag.BoolVar(&cfg.QuietStatus, "quiet-status", false, "suppress Status: progress lines")
	flag.BoolVar(&cfg.QuietProgress, "quiet-progress", false, "suppress Progress: M of N lines")
	flag.BoolVar(&cfg.DecodeGraphics, "decode-graphics", true, "decode BMAP bitmaps via the WOBA collaborator")
	verbose := flag.Bool("v", false, "verbose logging to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stackimport [flags] <stack-file>")
		os.Exit(2)
	}
	input := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	f, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackimport: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	outDir := strings.TrimSuffix(input, filepath.Ext(input)) + ".xstk"
	if err := stackimport.Import(f, outDir, cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "stackimport: %v\n", err)
		os.Exit(1)
	}
}
