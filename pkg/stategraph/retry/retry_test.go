package retry_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func fast(opts ...retry.Option) retry.Policy {
	return retry.New(append([]retry.Option{retry.WithBackoff(time.Millisecond, 5*time.Millisecond), retry.WithJitter(0)}, opts...)...)
}

func TestCategorize(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want retry.Category
	}{
		{"nil", nil, retry.Permanent},
		{"plain", boom, retry.Permanent},
		{"marked transient", retry.MarkTransient(boom), retry.Transient},
		{"wrapped transient", errors.Join(errors.New("ctx"), retry.MarkTransient(boom)), retry.Transient},
		{"timeout method", &net.OpError{Op: "dial", Err: timeoutErr{}}, retry.Transient},
		{"permanent overrides timeout", retry.MarkPermanent(timeoutErr{}), retry.Permanent},
		{"cancelled", context.Canceled, retry.Permanent},
		{"deadline", context.DeadlineExceeded, retry.Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.Categorize(tt.err))
		})
	}

	assert.Equal(t, "transient", retry.Transient.String())
	assert.Nil(t, retry.MarkTransient(nil))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var waits []int
	p := fast(retry.WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		waits = append(waits, attempt)
	}))

	v, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", retry.MarkTransient(errors.New("rate limited"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, waits)
}

func TestDo_PermanentReturnsImmediately(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0

	_, err := retry.Do(context.Background(), fast(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fast(retry.WithMaxAttempts(4)), func(context.Context) (int, error) {
		calls++
		return 0, retry.MarkTransient(errors.New("unavailable"))
	})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, 4, calls)
	assert.EqualError(t, err, "gave up after 4 attempts: unavailable")
}

func TestDo_CustomRetryable(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fast(retry.WithRetryable(func(error) bool { return true })), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("anything")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsWaitingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.New(retry.WithBackoff(time.Hour, time.Hour), retry.WithOnRetry(func(int, error, time.Duration) {
		cancel()
	}))
	transient := retry.MarkTransient(errors.New("flaky"))

	start := time.Now()
	_, err := retry.Do(ctx, p, func(context.Context) (int, error) { return 0, transient })

	assert.Same(t, transient, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_NonePolicy(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), retry.None, func(context.Context) (int, error) {
		calls++
		return 0, retry.MarkTransient(errors.New("flaky"))
	})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, calls)
}
