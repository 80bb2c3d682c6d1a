package bttest

import (
	"fmt"
	"regexp"
	"strings"
)

// EngineFilters decide which of the configured engines are run, based on their names.
type EngineFilters struct {
	MustMatch    PatternList
	MustNotMatch PatternList
}

func (r EngineFilters) Match(engine string) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(engine)) &&
		!r.MustNotMatch.AnyMatch(engine)
}

// PatternList is a list of regular expressions that can be built up from repeated command-line
// flags.
type PatternList []*regexp.Regexp

func (l PatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (l *PatternList) Set(value string) error {
	rx, err := regexp.Compile("^(?:" + value + ")$")
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	*l = append(*l, rx)
	return nil
}

func (l PatternList) IsDefined() bool {
	return len(l) != 0
}

func (l PatternList) AnyMatch(engine string) bool {
	for _, p := range l {
		if p.MatchString(engine) {
			return true
		}
	}
	return false
}

// PrintFilterDescription tells the user if some engines will not be run.
func PrintFilterDescription(filters EngineFilters) {
	if filters.MustMatch.IsDefined() || filters.MustNotMatch.IsDefined() {
		fmt.Println("Some engines will be skipped based on the filter criteria for this run:")
		if filters.MustMatch.IsDefined() {
			fmt.Printf("  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			fmt.Printf("  skip any matching %s\n", filters.MustNotMatch)
		}
		fmt.Println()
	}
}
