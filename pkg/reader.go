package emtf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var jsonLines = jsoniter.ConfigCompatibleWithStandardLibrary

// EventReader reads events stored as one JSON object per line. Blank
// lines are ignored.
type EventReader struct {
	scanner *bufio.Scanner
	file    *os.File
	read    int
}

const maxEventLine = 64 << 20

func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), maxEventLine)
	return &EventReader{scanner: scanner}
}

func OpenEventFile(filename string) (*EventReader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	reader := NewEventReader(file)
	reader.file = file
	return reader, nil
}

// Next returns the next event, or io.EOF after the last one.
func (r *EventReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := jsonLines.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("error decoding event %d: %w", r.read, err)
		}
		r.read++
		return &event, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading event %d: %w", r.read, err)
	}
	return nil, io.EOF
}

func (r *EventReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// OutputWriter writes outputs as JSON lines.
type OutputWriter struct {
	writer  *bufio.Writer
	encoder *jsoniter.Encoder
}

func NewOutputWriter(w io.Writer) *OutputWriter {
	writer := bufio.NewWriter(w)
	return &OutputWriter{writer: writer, encoder: jsonLines.NewEncoder(writer)}
}

func (w *OutputWriter) Write(output *Output) error {
	return w.encoder.Encode(output)
}

func (w *OutputWriter) Flush() error {
	return w.writer.Flush()
}
