package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollReturnsImmediatelyWhenConditionAlreadyHolds(t *testing.T) {
	calls := 0
	ok, elapsed, err := Poll(func() (bool, error) {
		calls++
		return true, nil
	}, time.Second, time.Millisecond*100)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Less(t, elapsed, time.Millisecond*50)
}

func TestPollReturnsAsSoonAsConditionHolds(t *testing.T) {
	readyAt := time.Now().Add(time.Millisecond * 60)
	ok, elapsed, err := Poll(func() (bool, error) {
		return time.Now().After(readyAt), nil
	}, time.Second*2, time.Millisecond*10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Millisecond*60)
	assert.Less(t, elapsed, time.Second)
}

func TestPollTimesOut(t *testing.T) {
	timeout := time.Millisecond * 80
	interval := time.Millisecond * 10
	ok, elapsed, err := Poll(func() (bool, error) { return false, nil }, timeout, interval)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Millisecond*200)
}

func TestPollStopsOnError(t *testing.T) {
	fail := errors.New("sorry")
	calls := 0
	ok, _, err := Poll(func() (bool, error) {
		calls++
		if calls == 3 {
			return false, fail
		}
		return false, nil
	}, time.Second, time.Millisecond)
	assert.False(t, ok)
	assert.Equal(t, fail, err)
	assert.Equal(t, 3, calls)
}

func TestPollWithZeroTimeoutChecksOnce(t *testing.T) {
	calls := 0
	ok, _, err := Poll(func() (bool, error) {
		calls++
		return false, nil
	}, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}
