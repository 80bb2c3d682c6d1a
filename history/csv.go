package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CSVStore appends records to a CSV file. The header row is written only when the file is new or
// empty. The file is opened in append mode and each record is written with a single write call
// followed by a sync, so rows from concurrent workers can never be interleaved and a crash loses
// at most the row being written.
//
// If a write fails, the file is truncated back to its last complete row and the store refuses
// every later Append.
type CSVStore struct {
	path   string
	file   historyFile
	broken error
	lock   sync.Mutex
}

// historyFile is the part of *os.File that CSVStore uses.
type historyFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Close() error
}

// OpenCSV opens or creates the history file, creating its directory if necessary. An existing
// non-empty file must have the expected header.
func OpenCSV(path string) (*CSVStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := writeRows(f, Columns); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write history header: %w", err)
		}
	} else if err := checkHeader(path); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &CSVStore{path: path, file: f}, nil
}

func (s *CSVStore) Name() string { return "csv:" + s.path }

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Append(_ context.Context, r Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.file == nil {
		return &StoreWriteError{Backend: s.Name(), RecordID: r.RecordID, Err: os.ErrClosed}
	}
	if s.broken != nil {
		return &StoreWriteError{Backend: s.Name(), RecordID: r.RecordID, Err: s.broken}
	}
	info, err := s.file.Stat()
	if err != nil {
		return &StoreWriteError{Backend: s.Name(), RecordID: r.RecordID, Err: err}
	}
	if err := writeRows(s.file, r.Row()); err != nil {
		s.broken = fmt.Errorf("an earlier write failed: %w", err)
		if terr := s.file.Truncate(info.Size()); terr != nil {
			s.broken = fmt.Errorf("an earlier write failed and left a partial row (%s): %w", terr, err)
		}
		return &StoreWriteError{Backend: s.Name(), RecordID: r.RecordID, Err: err}
	}
	return nil
}

func (s *CSVStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func writeRows(f historyFile, rows ...[]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

func checkHeader(path string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}
	defer f.Close()
	header, err := csv.NewReader(bufio.NewReader(f)).Read()
	if err != nil {
		return fmt.Errorf("history file %s is not readable as CSV: %w", path, err)
	}
	if strings.Join(header, ",") != strings.Join(Columns, ",") {
		return fmt.Errorf("history file %s has unexpected columns %v", path, header)
	}
	return nil
}

// ReadCSV reads every record from a history file.
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = len(Columns)
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	var ret []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := RecordFromRow(row)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
}
