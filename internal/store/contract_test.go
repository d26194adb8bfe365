package store

import (
	"context"
	"sort"
	"sync"
	"testing"

	"backend-tiket/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract checks the behaviour every queue.Store has to provide.
// Branch ids are prefixed so the Redis run can share a database.
func runContract(t *testing.T, s queue.Store, prefix string) {
	ctx := context.Background()

	t.Run("sequence increments by one", func(t *testing.T) {
		b := prefix + "seq"
		for want := int64(1); want <= 5; want++ {
			n, err := s.Next(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}
	})

	t.Run("concurrent next is unique", func(t *testing.T) {
		b := prefix + "conc"
		const workers, per = 8, 50

		var (
			mu  sync.Mutex
			got []int64
			wg  sync.WaitGroup
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < per; j++ {
					n, err := s.Next(ctx, b)
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					got = append(got, n)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		require.Len(t, got, workers*per)
		for i, n := range got {
			assert.Equal(t, int64(i+1), n)
		}
	})

	t.Run("rewind only moves back the last number", func(t *testing.T) {
		b := prefix + "rewind"
		_, err := s.Next(ctx, b)
		require.NoError(t, err)
		n, err := s.Next(ctx, b)
		require.NoError(t, err)

		ok, err := s.Rewind(ctx, b, n-1)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Rewind(ctx, b, n)
		require.NoError(t, err)
		assert.True(t, ok)

		again, err := s.Next(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, n, again)
	})

	t.Run("fifo with lengths", func(t *testing.T) {
		b := prefix + "fifo"
		for i, n := range []int64{7, 8, 9} {
			length, err := s.PushBack(ctx, b, n)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), length)
		}

		for i, want := range []int64{7, 8, 9} {
			n, length, ok, err := s.PopFront(ctx, b)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, n)
			assert.Equal(t, int64(2-i), length)
		}

		_, _, ok, err := s.PopFront(ctx, b)
		require.NoError(t, err)
		assert.False(t, ok)

		length, err := s.Length(ctx, b)
		require.NoError(t, err)
		assert.Zero(t, length)
	})

	t.Run("branches are independent", func(t *testing.T) {
		a, b := prefix+"A", prefix+"B"
		_, err := s.PushBack(ctx, a, 1)
		require.NoError(t, err)
		_, err = s.PushBack(ctx, b, 1)
		require.NoError(t, err)
		_, err = s.PushBack(ctx, a, 2)
		require.NoError(t, err)

		la, err := s.Length(ctx, a)
		require.NoError(t, err)
		lb, err := s.Length(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, int64(2), la)
		assert.Equal(t, int64(1), lb)
	})
}
