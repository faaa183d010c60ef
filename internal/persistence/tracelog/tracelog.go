// Package tracelog writes and reads playthrough trace logs: one JSON
// object per line, optionally zstd-compressed when the path ends in
// ".zst". Every line is flushed through to the file so a truncated run
// still parses.
package tracelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"multiworld.gg/internal/trace"
)

type Writer struct {
	f   *os.File
	enc *zstd.Encoder // nil for plain jsonl
	w   *bufio.Writer
}

// Create opens a fresh trace log, truncating any previous file.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		w.enc = enc
		w.w = bufio.NewWriterSize(enc, 64*1024)
	} else {
		w.w = bufio.NewWriterSize(f, 64*1024)
	}
	return w, nil
}

func (w *Writer) WriteStateUpdate(su trace.StateUpdate) error {
	b, err := json.Marshal(su)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.enc != nil {
		return w.enc.Flush()
	}
	return nil
}

func (w *Writer) Close() error {
	var errEnc error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		errEnc = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		errClose := w.f.Close()
		w.f = nil
		if errEnc != nil {
			return errEnc
		}
		return errClose
	}
	return errEnc
}

// ReadLines loads a whole trace log, one raw JSON line per element,
// transparently decompressing ".zst" files.
func ReadLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	var lines [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		// An aborted run leaves a compressed frame without its end
		// marker; everything flushed before the abort is still good.
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return lines, nil
}
