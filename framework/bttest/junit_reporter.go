package bttest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework"
	o "github.com/adqa/browser-test-harness/framework/opt"

	"golang.org/x/exp/slices"
)

// JUnitReporter writes a JUnit XML file at the end of a run, with one test case per engine.
type JUnitReporter struct {
	filePath string
	scenario string
	filters  EngineFilters
	engines  []string // this slice preserves the order that the engines were started in
	statuses map[string]jUnitEngineStatus
	lock     sync.Mutex
}

type jUnitEngineStatus struct {
	failures  []error
	skipped   o.Maybe[string]
	output    string
	startTime time.Time
	duration  time.Duration
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

func NewJUnitReporter(filePath string, scenario string, filters EngineFilters) *JUnitReporter {
	return &JUnitReporter{
		filePath: filePath,
		scenario: scenario,
		filters:  filters,
		statuses: make(map[string]jUnitEngineStatus),
	}
}

func (j *JUnitReporter) addEngine(engine string) jUnitEngineStatus {
	if !slices.Contains(j.engines, engine) {
		j.engines = append(j.engines, engine)
	}
	return j.statuses[engine]
}

func (j *JUnitReporter) EngineStarted(engine string) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.addEngine(engine)
	status.startTime = time.Now()
	j.statuses[engine] = status
}

func (j *JUnitReporter) EngineError(engine string, err error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.addEngine(engine)
	status.failures = append(status.failures, err)
	j.statuses[engine] = status
}

func (j *JUnitReporter) EngineFinished(outcome Outcome, debugOutput framework.CapturedOutput) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.addEngine(outcome.Engine)
	status.output = debugOutput.ToString("")
	status.duration = outcome.Duration()
	if !outcome.Passed() && len(status.failures) == 0 {
		status.failures = append(status.failures, fmt.Errorf("%s", outcome.Failure.Value().Message))
	}
	j.statuses[outcome.Engine] = status
}

func (j *JUnitReporter) EngineSkipped(engine string, reason string) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.addEngine(engine)
	status.skipped = o.Some(reason)
	j.statuses[engine] = status
}

func (j *JUnitReporter) EndRun(outcomes []Outcome) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	fmt.Printf("Writing JUnit data to %s\n", j.filePath)

	suite := jUnitXMLTestSuite{
		Name: fmt.Sprintf("Browser scenario: %s", j.scenario),
		Properties: []jUnitXMLProperty{
			{Name: "engines.filter.mustMatch", Value: j.filters.MustMatch.String()},
			{Name: "engines.filter.mustNotMatch", Value: j.filters.MustNotMatch.String()},
		},
	}
	if len(outcomes) > 0 {
		suite.Properties = append(suite.Properties, jUnitXMLProperty{Name: "run.id", Value: outcomes[0].RunID})
	}
	suiteTotalDuration := time.Duration(0)
	for _, engine := range j.engines {
		status := j.statuses[engine]

		suite.Tests++
		suiteTotalDuration += status.duration

		testCase := jUnitXMLTestCase{
			Classname: j.scenario,
			Name:      engine,
			Time:      jUnitDurationString(status.duration),
		}
		if status.skipped.IsDefined() {
			suite.Skipped++
			testCase.SkipMessage = &jUnitXMLSkipMessage{Message: status.skipped.Value()}
		}
		if len(status.failures) != 0 {
			suite.Failures++
			var messages []string
			for _, e := range status.failures {
				message := e.Error()
				if es, ok := e.(ErrorWithStacktrace); ok {
					message += "\n  Stacktrace:"
					for _, s := range es.Stacktrace {
						message += "\n    " + s.String()
					}
				}
				messages = append(messages, message)
			}
			testCase.Failure = &jUnitXMLFailure{
				Message:  strings.Join(messages, "\n"),
				Type:     failureKindFor(outcomes, engine),
				Contents: status.output,
			}
		}

		suite.TestCases = append(suite.TestCases, testCase)
	}
	suite.Time = jUnitDurationString(suiteTotalDuration)
	doc := jUnitXMLDocument{Suites: []jUnitXMLTestSuite{suite}}

	bytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	bytes = append(bytes, '\n')

	return os.WriteFile(j.filePath, bytes, 0644) //nolint:gosec
}

func failureKindFor(outcomes []Outcome, engine string) string {
	for _, oc := range outcomes {
		if oc.Engine == engine && oc.Failure.IsDefined() {
			return string(oc.Failure.Value().Kind)
		}
	}
	return ""
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
