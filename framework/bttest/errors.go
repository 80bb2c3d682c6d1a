package bttest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// ErrorWithStacktrace is an error reported in a test scope, with the location of the scenario code
// that reported it. Cause is the original error if there was one, so that callers can still use
// errors.As to find out what kind of failure it was.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
	Cause      error
}

type StacktraceInfo struct {
	FileName string
	FilePath string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

func (e ErrorWithStacktrace) Unwrap() error { return e.Cause }

func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, rootPackageName()+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

// Location is the short form used in history records: "file:line function".
func (s StacktraceInfo) Location() string {
	return fmt.Sprintf("%s:%d %s", s.FileName, s.Line, s.Function)
}

// SourceLine is the trimmed text of the line, or "" if the source file cannot be read.
func (s StacktraceInfo) SourceLine() string {
	if s.FilePath == "" || s.Line <= 0 {
		return ""
	}
	f, err := os.Open(s.FilePath) //nolint:gosec
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if n == s.Line {
			return strings.TrimSpace(scanner.Text())
		}
	}
	return ""
}

var errorTraceInMessageRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// transformError attaches a stacktrace to an error using our own stacktrace logic, and also
// strips out any stacktrace information that may have been added to the error message by the
// testify/assert or testify/require functions.
func transformError(err error, cause error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(errorTraceInMessageRegex.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 && cause == nil {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace, Cause: cause}
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "?"
	}
	packageName, _ := parsePackageAndFunctionName(f.Name())
	return packageName
}

func rootPackageName() string {
	p := currentPackageName()
	return strings.Join(strings.Split(p, "/")[0:3], "/")
}

// getStacktrace returns the callers of the current function, up to the test scope that is running
// the scenario. Go runtime frames are always left out, since when this is called while recovering
// from a panic they are on top of the stack.
func getStacktrace(includeBTTestCode bool, helperFns []string) []StacktraceInfo {
	callers := []StacktraceInfo{}
	currentPackage := currentPackageName()
StackLoop:
	for i := 1; ; i++ { // start at 1 because 0 would just be getStacktrace itself
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		f := runtime.FuncForPC(pc)
		if f == nil {
			break
		}
		path := file
		parts := strings.Split(file, "/")
		file = parts[len(parts)-1]

		fullFunctionName := f.Name()
		packageName, functionName := parsePackageAndFunctionName(f.Name())

		if packageName == currentPackage && functionName == "(*T).run" {
			break // the scope's run method is always the root of a scenario
		}
		if packageName == "runtime" {
			continue StackLoop
		}
		if !includeBTTestCode && packageName == currentPackage {
			continue StackLoop
		}
		for _, helperFn := range helperFns {
			if helperFn == fullFunctionName {
				continue StackLoop // exclude this function from the stacktrace
			}
		}

		callers = append(callers, StacktraceInfo{FileName: file, FilePath: path, Package: packageName, Function: functionName, Line: line})
	}
	return callers
}

func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	firstDotAfterSlash := strings.Index(fullName[lastSlash+1:], ".")
	packageName := fullName[0 : lastSlash+firstDotAfterSlash+1]
	functionName := fullName[len(packageName)+1:]
	return packageName, functionName
}
