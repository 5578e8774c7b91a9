package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	emtf "github.com/next-exp/emtf_go/pkg"
	"golang.org/x/sync/errgroup"
)

const blockSize = 1 << 20

// blockLUT evaluates the source LUT one block of addresses at a time on
// several workers. Lookups are expected in increasing address order.
type blockLUT struct {
	source  emtf.PtLUT
	workers int
	start   uint32
	block   []uint16
}

func (l *blockLUT) Version() int {
	return l.source.Version()
}

func (l *blockLUT) fill(start uint32) {
	l.start = start
	if l.block == nil {
		l.block = make([]uint16, blockSize)
	}
	var g errgroup.Group
	g.SetLimit(l.workers)
	step := blockSize / l.workers
	for w := 0; w < l.workers; w++ {
		lo := w * step
		hi := lo + step
		if w == l.workers-1 {
			hi = blockSize
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				l.block[i] = uint16(l.source.Lookup(start + uint32(i)))
			}
			return nil
		})
	}
	g.Wait()
}

func (l *blockLUT) Lookup(address uint32) int {
	if l.block == nil || address < l.start || address >= l.start+blockSize {
		l.fill(address - address%blockSize)
	}
	return int(l.block[address-l.start])
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	version := flag.Int("version", 5, "Pt assignment version of the forest")
	forestDir := flag.String("forest", "v_16_02_21", "Forest name")
	lutVersion := flag.Int("lut-version", 4, "LUT version written at address 0")
	entries := flag.Int("entries", emtf.PtLUTEntries, "Number of entries to write")
	workers := flag.Int("workers", 8, "Number of workers")
	outFile := flag.String("out", "", "Output LUT file")
	flag.Parse()

	if err := run(logger, *version, *forestDir, *lutVersion, *entries, *workers, *outFile); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger, version int, forestDir string, lutVersion, entries, workers int, outFile string) error {
	if outFile == "" {
		return errors.New("no output file given")
	}
	if entries < 1 || entries > emtf.PtLUTEntries || entries%4 != 0 {
		return fmt.Errorf("entries must be a positive multiple of 4 up to %d", emtf.PtLUTEntries)
	}
	if workers < 1 {
		workers = 1
	}

	forest, err := emtf.EmbeddedForest(version, forestDir)
	if err != nil {
		return err
	}

	file, err := os.Create(outFile)
	if err != nil {
		return &emtf.ErrOpenFile{Filename: outFile, Err: err}
	}
	defer file.Close()

	logger.Info(fmt.Sprintf("Writing %d entries (%s) of forest %s to %s", entries, humanize.Bytes(uint64(entries)*2), forestDir, outFile))
	start := time.Now()
	lut := &blockLUT{source: emtf.NewEmbeddedPtLUT(forest, lutVersion), workers: workers}
	writer := bufio.NewWriter(file)
	if err := emtf.WritePtLUT(writer, lut, entries); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Done in %s", time.Since(start).Round(time.Millisecond)))
	return file.Close()
}
