package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bfinder/bfinder/internal/scan"
)

func main() {
	top := flag.Int("top", 10, "number of largest files to report")
	workers := flag.Int("workers", 0, "scan workers (0 = number of CPUs)")
	flag.Parse()

	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	start := time.Now()
	entries, stats, err := scan.Tree(root, scan.Options{TopN: *top, Workers: *workers})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bfinder: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	fmt.Printf("Top %d largest files:\n\n", *top)
	for i, e := range entries {
		fmt.Printf("%4d. %12s  %s\n", i+1, humanize.IBytes(uint64(e.Size)), e.Path)
	}

	fmt.Println()
	fmt.Println("Statistics:")
	fmt.Printf("  Files scanned:       %d\n", stats.FilesScanned)
	fmt.Printf("  Directories scanned: %d\n", stats.DirsScanned)
	fmt.Printf("  Errors:              %d\n", stats.Errors)
	fmt.Printf("  Time elapsed:        %.3fs\n", elapsed.Seconds())
}
