package history

import (
	"fmt"
	"time"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// MarshalRecordJSON encodes a record as a JSON object whose property names are the CSV columns.
// This is the payload format of the key-value and message-stream mirrors.
func MarshalRecordJSON(r Record) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("record_id").String(r.RecordID)
	obj.Name("run_id").String(r.RunID)
	obj.Name("run_timestamp").String(r.RunTimestamp.Format(timestampLayout))
	obj.Name("scenario").String(r.Scenario)
	obj.Name("engine").String(r.Engine)
	obj.Name("status").String(r.Status)
	obj.Name("duration_seconds").Float64(r.Duration.Seconds())
	obj.Maybe("error_kind", r.ErrorKind != "").String(r.ErrorKind)
	obj.Maybe("failure_message", r.FailureMessage != "").String(r.FailureMessage)
	obj.Maybe("failure_location", r.FailureLocation != "").String(r.FailureLocation)
	obj.Maybe("failure_source", r.FailureSource != "").String(r.FailureSource)
	obj.Maybe("artifact", r.Artifact != "").String(r.Artifact)
	obj.End()
	return w.Bytes()
}

// UnmarshalRecordJSON decodes the format written by MarshalRecordJSON. Unknown properties are
// ignored.
func UnmarshalRecordJSON(data []byte) (Record, error) {
	var r Record
	var timestamp string
	reader := jreader.NewReader(data)
	for obj := reader.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "record_id":
			r.RecordID = reader.String()
		case "run_id":
			r.RunID = reader.String()
		case "run_timestamp":
			timestamp = reader.String()
		case "scenario":
			r.Scenario = reader.String()
		case "engine":
			r.Engine = reader.String()
		case "status":
			r.Status = reader.String()
		case "duration_seconds":
			r.Duration = time.Duration(reader.Float64() * float64(time.Second)).Round(time.Millisecond)
		case "error_kind":
			r.ErrorKind = reader.String()
		case "failure_message":
			r.FailureMessage = reader.String()
		case "failure_location":
			r.FailureLocation = reader.String()
		case "failure_source":
			r.FailureSource = reader.String()
		case "artifact":
			r.Artifact = reader.String()
		}
	}
	if err := reader.Error(); err != nil {
		return Record{}, fmt.Errorf("malformed history record JSON: %w", err)
	}
	if timestamp != "" {
		ts, err := time.Parse(timestampLayout, timestamp)
		if err != nil {
			return Record{}, fmt.Errorf("bad run_timestamp %q: %w", timestamp, err)
		}
		r.RunTimestamp = ts
	}
	return r, nil
}
