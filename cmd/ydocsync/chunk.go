// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/codec"
	"github.com/bureau-foundation/ydocsync/lib/config"
	"github.com/bureau-foundation/ydocsync/lib/reconcile"
)

func runChunk(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := newFlagSet("chunk")
	var configPath string
	var params chunk.Params
	var showManifest bool
	flagSet.StringVar(&configPath, "config", "", "take chunking parameters from this configuration file")
	flagSet.IntVar(&params.Average, "average", 0, "target average chunk size (default from configuration, else 1024)")
	flagSet.IntVar(&params.Min, "min", 0, "minimum chunk size")
	flagSet.IntVar(&params.Max, "max", 0, "maximum chunk size")
	flagSet.BoolVar(&showManifest, "manifest", false, "print the manifest in CBOR diagnostic notation")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() < 1 || flagSet.NArg() > 2 {
		return fmt.Errorf("usage: ydocsync chunk [flags] FILE [PREVIOUS]")
	}

	base := chunk.DefaultParams()
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		base = cfg.Chunking
	}
	if params.Average == 0 {
		params.Average = base.Average
	}
	if params.Min == 0 {
		params.Min = base.Min
	}
	if params.Max == 0 {
		params.Max = base.Max
	}

	source, err := readInput(flagSet.Arg(0), stdin)
	if err != nil {
		return err
	}
	result, err := chunk.Chunk(ctx, params, source)
	if err != nil {
		return err
	}

	printChunkStats(stdout, params, source, result)

	if flagSet.NArg() == 2 {
		previousSource, err := readInput(flagSet.Arg(1), stdin)
		if err != nil {
			return err
		}
		previous, err := chunk.Chunk(ctx, params, previousSource)
		if err != nil {
			return err
		}
		shared := 0
		for hash := range result.ChunksByHash {
			if _, ok := previous.ChunksByHash[hash]; ok {
				shared++
			}
		}
		fmt.Fprintf(stdout, "shared with previous: %d of %d distinct chunks (%.1f%%)\n",
			shared, len(result.ChunksByHash), percent(shared, len(result.ChunksByHash)))
	}

	if showManifest {
		encoded, err := codec.Marshal(reconcile.Manifest{ChunkHashes: result.SourceHashes, Length: len(source)})
		if err != nil {
			return err
		}
		diagnostic, err := codec.Diagnose(encoded)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, diagnostic)
	}
	return nil
}

// printChunkStats reports chunk sizes in source order. The final chunk
// is cut by the end of the input rather than by the rolling hash, so
// min, mean and max leave it out and it is reported on its own.
func printChunkStats(w io.Writer, params chunk.Params, source []byte, result *chunk.Result) {
	fmt.Fprintf(w, "params: %s\n", params)
	fmt.Fprintf(w, "bytes: %d\n", len(source))
	fmt.Fprintf(w, "chunks: %d (%d distinct)\n", len(result.SourceHashes), len(result.ChunksByHash))
	count := len(result.SourceHashes)
	if count == 0 {
		return
	}

	last := len(result.ChunksByHash[result.SourceHashes[count-1]])
	if count == 1 {
		fmt.Fprintf(w, "size: single chunk of %d bytes\n", last)
		return
	}

	smallest, largest, total := len(source), 0, 0
	for _, hash := range result.SourceHashes[:count-1] {
		length := len(result.ChunksByHash[hash])
		smallest = min(smallest, length)
		largest = max(largest, length)
		total += length
	}
	fmt.Fprintf(w, "size excluding last: min %d, mean %.1f, max %d\n",
		smallest, float64(total)/float64(count-1), largest)
	fmt.Fprintf(w, "last chunk: %d bytes\n", last)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
