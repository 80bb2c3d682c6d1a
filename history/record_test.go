package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/adqa/browser-test-harness/framework/bttest"
	"github.com/adqa/browser-test-harness/framework/opt"

	"github.com/stretchr/testify/assert"
)

func TestFromOutcome(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runTime := start.Add(-time.Second)

	passed := FromOutcome("rec1", runTime, bttest.Outcome{
		RunID: "run1", Scenario: "smoke", Engine: "chrome", Status: bttest.StatusPass,
		Start: start, End: start.Add(2500 * time.Millisecond),
	})
	assert.Equal(t, []string{"rec1", "run1", "2024-03-01T09:59:59Z", "smoke", "chrome", "pass", "2.500", "", "", "", "", ""},
		passed.Row())
	assert.True(t, passed.Passed())

	failed := FromOutcome("rec2", runTime, bttest.Outcome{
		RunID: "run1", Scenario: "smoke", Engine: "firefox", Status: bttest.StatusFail,
		Start: start, End: start.Add(time.Second),
		Failure: opt.Some(bttest.Failure{
			Kind:     bttest.KindElementNotFound,
			Message:  "no element",
			Location: "smoke.go:20 Smoke.func1",
			Source:   `t.RequireNoError(d.Navigate(url))`,
			Artifact: "a.png",
		}),
	})
	assert.Equal(t, "ElementNotFound", failed.ErrorKind)
	assert.Equal(t, "no element", failed.FailureMessage)
	assert.Equal(t, "smoke.go:20 Smoke.func1", failed.FailureLocation)
	assert.Equal(t, `t.RequireNoError(d.Navigate(url))`, failed.FailureSource)
	assert.Equal(t, `t.RequireNoError(d.Navigate(url))`, failed.Row()[10])
	assert.Equal(t, "a.png", failed.Artifact)
	assert.False(t, failed.Passed())
}

func TestRecordFromRowRejectsWrongShape(t *testing.T) {
	_, err := RecordFromRow([]string{"a", "b"})
	assert.Error(t, err)

	row := makeRecord("run1", "chrome", true).Row()
	row[6] = "fast"
	_, err = RecordFromRow(row)
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	day := time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("test_history", "expandable_07_03_2024.csv"), DefaultPath("test_history", "expandable", day))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	r := makeRecord("run1", "firefox", false)
	decoded, err := UnmarshalRecordJSON(MarshalRecordJSON(r))
	assert.NoError(t, err)
	assert.Equal(t, r, decoded)

	decoded, err = UnmarshalRecordJSON([]byte(`{"record_id":"x","extra":{"a":[1,2]},"status":"pass"}`))
	assert.NoError(t, err)
	assert.Equal(t, Record{RecordID: "x", Status: "pass"}, decoded)

	_, err = UnmarshalRecordJSON([]byte(`{"record_id":`))
	assert.Error(t, err)
}
