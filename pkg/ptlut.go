package emtf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
)

// PtLUT maps a pt address to a 9-bit pt word. Address 0 holds the LUT
// version.
type PtLUT interface {
	Lookup(address uint32) int
	Version() int
}

const (
	ptWordBits = 9
	ptWordMask = 1<<ptWordBits - 1
)

// Four 9-bit entries are packed in each 64-bit little endian word, at bits
// 0, 9, 32 and 41.
var ptWordShifts = [4]uint{0, 9, 32, 41}

type memoryLUT struct {
	entries []uint16
}

func (l *memoryLUT) Lookup(address uint32) int {
	if int(address) >= len(l.entries) {
		return 0
	}
	return int(l.entries[address])
}

func (l *memoryLUT) Version() int {
	if len(l.entries) == 0 {
		return 0
	}
	return int(l.entries[0])
}

// ReadPtLUT reads a packed LUT holding exactly nEntries entries.
func ReadPtLUT(r io.Reader, nEntries int) (PtLUT, error) {
	reader := bufio.NewReaderSize(r, 1<<20)
	entries := make([]uint16, 0, nEntries)
	var word [8]byte
	for {
		_, err := io.ReadFull(reader, word[:])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ErrPtLUT{Reason: fmt.Sprintf("truncated word after %d entries: %v", len(entries), err)}
		}
		full := binary.LittleEndian.Uint64(word[:])
		for _, shift := range ptWordShifts {
			entries = append(entries, uint16((full>>shift)&ptWordMask))
		}
		if len(entries) > nEntries {
			return nil, &ErrPtLUT{Reason: fmt.Sprintf("more than %d entries", nEntries)}
		}
	}
	if len(entries) != nEntries {
		return nil, &ErrPtLUT{Reason: fmt.Sprintf("size is %d != %d", len(entries), nEntries)}
	}
	return &memoryLUT{entries: entries}, nil
}

// LoadPtLUTFile reads a full size LUT from disk and checks its version.
func LoadPtLUTFile(filename string, version int) (PtLUT, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		size := int64(PtLUTEntries / len(ptWordShifts) * 8)
		if info.Size() != size {
			return nil, &ErrPtLUT{Filename: filename, Reason: fmt.Sprintf("file size is %s, expected %s", humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(size)))}
		}
		logger.Info(fmt.Sprintf("Loading pt LUT %s (%s), this might take a while", filename, humanize.Bytes(uint64(info.Size()))), "ptlut")
	}
	lut, err := ReadPtLUT(file, PtLUTEntries)
	if err != nil {
		var lutErr *ErrPtLUT
		if errors.As(err, &lutErr) {
			lutErr.Filename = filename
		}
		return nil, err
	}
	if lut.Version() != version {
		return nil, &ErrPtLUT{Filename: filename, Reason: fmt.Sprintf("version %d, expected %d", lut.Version(), version)}
	}
	return lut, nil
}

// WritePtLUT writes nEntries entries of lut in the packed format.
func WritePtLUT(w io.Writer, lut PtLUT, nEntries int) error {
	writer := bufio.NewWriterSize(w, 1<<20)
	var word [8]byte
	for address := 0; address < nEntries; address += len(ptWordShifts) {
		var full uint64
		for i, shift := range ptWordShifts {
			if address+i < nEntries {
				full |= uint64(lut.Lookup(uint32(address+i))&ptWordMask) << shift
			}
		}
		binary.LittleEndian.PutUint64(word[:], full)
		if _, err := writer.Write(word[:]); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// embeddedLUT computes the LUT content from the forest on demand.
type embeddedLUT struct {
	forest  *Forest
	version int
}

func NewEmbeddedPtLUT(forest *Forest, version int) PtLUT {
	return &embeddedLUT{forest: forest, version: version}
}

func (l *embeddedLUT) Version() int {
	return l.version
}

func (l *embeddedLUT) Lookup(address uint32) int {
	if address == 0 {
		return l.version
	}
	features, mode := AddressFeatures(address, l.version)
	if primaryPair(mode) < 0 {
		return 0
	}
	l.forest.Clamp(&features)
	xmlPt, _ := scoreToPt(l.forest.Score(mode, features), false)
	return GMTPt(xmlPt, ptWordBits)
}
