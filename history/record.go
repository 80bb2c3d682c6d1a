package history

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adqa/browser-test-harness/framework/bttest"
)

// Columns is the CSV header, in order. It is also the attribute set used by the mirrors.
var Columns = []string{ //nolint:gochecknoglobals
	"record_id",
	"run_id",
	"run_timestamp",
	"scenario",
	"engine",
	"status",
	"duration_seconds",
	"error_kind",
	"failure_message",
	"failure_location",
	"failure_source",
	"artifact",
}

const timestampLayout = time.RFC3339Nano

// Record is the persisted form of one Outcome. The failure fields are empty for a passing run.
type Record struct {
	RecordID        string
	RunID           string
	RunTimestamp    time.Time
	Scenario        string
	Engine          string
	Status          string
	Duration        time.Duration
	ErrorKind       string
	FailureMessage  string
	FailureLocation string
	FailureSource   string
	Artifact        string
}

// FromOutcome builds a Record. runTimestamp is the time the whole run started, which is shared by
// every record of the run.
func FromOutcome(recordID string, runTimestamp time.Time, o bttest.Outcome) Record {
	r := Record{
		RecordID:     recordID,
		RunID:        o.RunID,
		RunTimestamp: runTimestamp.UTC(),
		Scenario:     o.Scenario,
		Engine:       o.Engine,
		Status:       string(o.Status),
		Duration:     o.Duration(),
	}
	if o.Failure.IsDefined() {
		f := o.Failure.Value()
		r.ErrorKind = string(f.Kind)
		r.FailureMessage = f.Message
		r.FailureLocation = f.Location
		r.FailureSource = f.Source
		r.Artifact = f.Artifact
	}
	return r
}

func (r Record) Passed() bool { return r.Status == string(bttest.StatusPass) }

// Row returns the record's values in the order of Columns.
func (r Record) Row() []string {
	return []string{
		r.RecordID,
		r.RunID,
		r.RunTimestamp.Format(timestampLayout),
		r.Scenario,
		r.Engine,
		r.Status,
		formatSeconds(r.Duration),
		r.ErrorKind,
		r.FailureMessage,
		r.FailureLocation,
		r.FailureSource,
		r.Artifact,
	}
}

// RecordFromRow is the inverse of Row.
func RecordFromRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(row))
	}
	ts, err := time.Parse(timestampLayout, row[2])
	if err != nil {
		return Record{}, fmt.Errorf("bad run_timestamp %q: %w", row[2], err)
	}
	d, err := parseSeconds(row[6])
	if err != nil {
		return Record{}, fmt.Errorf("bad duration_seconds %q: %w", row[6], err)
	}
	return Record{
		RecordID:        row[0],
		RunID:           row[1],
		RunTimestamp:    ts,
		Scenario:        row[3],
		Engine:          row[4],
		Status:          row[5],
		Duration:        d,
		ErrorKind:       row[7],
		FailureMessage:  row[8],
		FailureLocation: row[9],
		FailureSource:   row[10],
		Artifact:        row[11],
	}, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)).Round(time.Millisecond), nil
}

// DefaultPath is the history file used when none is configured: one file per scenario per day,
// so that repeated runs on the same day accumulate in the same file.
func DefaultPath(dir, scenario string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", scenario, day.Format("02_01_2006")))
}
