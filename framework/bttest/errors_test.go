package bttest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adqa/browser-test-harness/framework/bttest/internal"
	"github.com/adqa/browser-test-harness/framework/driver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStacktrace(t *testing.T) {
	scope := newScope("chrome", nil)
	scope.run(func(*T) {
		// Without filtering, the stack ends just above the scope's run method.
		stack := getStacktrace(true, nil)
		require.Len(t, stack, 1)
		assert.Equal(t, currentPackageName(), stack[0].Package)
		assert.Contains(t, stack[0].Function, "TestStacktrace.")

		internal.RunAction(func() {
			stack := getStacktrace(false, nil)
			require.Len(t, stack, 1)
			assert.Equal(t, currentPackageName()+"/internal", stack[0].Package)
			assert.Equal(t, "RunAction", stack[0].Function)
		})

		helperFunc1(func() {
			helperFunc2(func() {
				stack := getStacktrace(true, []string{currentPackageName() + ".helperFunc2"})
				foundFunc1 := false
				for _, s := range stack {
					if s.Package == currentPackageName() && s.Function == "helperFunc1" {
						foundFunc1 = true
					} else if s.Package == currentPackageName() && s.Function == "helperFunc2" {
						require.Fail(t, "helperFunc2 should not have been in stacktrace", "stacktrace: %+v", stack)
					}
				}
				assert.True(t, foundFunc1, "helperFunc1 should have been in stacktrace but wasn't", "stacktrace: %+v", stack)
			})
		})
	})
}

func helperFunc1(action func()) {
	action()
}

func helperFunc2(action func()) {
	action()
}

func TestTransformErrorStripsTestifyTrace(t *testing.T) {
	err := errors.New("\n\tError Trace:\tfoo.go:12\n\tError:      \tNot equal: 1 != 2\n")
	out := transformError(err, nil, nil)
	assert.Equal(t, "Not equal: 1 != 2", out.Error())
}

func TestErrorWithStacktraceKeepsCause(t *testing.T) {
	cause := &driver.TimeoutError{Condition: "banner"}
	err := transformError(cause, cause, []StacktraceInfo{{FileName: "expandable.go", Function: "Expandable.func1", Line: 40}})
	assert.True(t, driver.IsTimeout(err))
	assert.Equal(t, KindTimeout, classify(err, false))
	var es ErrorWithStacktrace
	require.True(t, errors.As(err, &es))
	assert.Equal(t, "expandable.go:40 Expandable.func1", es.Stacktrace[0].Location())
}

func TestStacktraceSourceLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expandable.go")
	require.NoError(t, os.WriteFile(path, []byte("package scenarios\n\n\t\tbanner.Click()  \n"), 0o644))

	assert.Equal(t, "banner.Click()", StacktraceInfo{FilePath: path, Line: 3}.SourceLine())
	assert.Equal(t, "", StacktraceInfo{FilePath: path, Line: 4}.SourceLine())
	assert.Equal(t, "", StacktraceInfo{FilePath: path}.SourceLine())
	assert.Equal(t, "", StacktraceInfo{FilePath: filepath.Join(t.TempDir(), "gone.go"), Line: 1}.SourceLine())
}

func TestStacktraceRecordsFullPath(t *testing.T) {
	var stack []StacktraceInfo
	internal.RunAction(func() {
		stack = getStacktrace(false, nil)
	})
	require.NotEmpty(t, stack)
	assert.Equal(t, "test_helper.go", stack[0].FileName)
	assert.Equal(t, "action()", stack[0].SourceLine())
}
