package growarray_test

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiwano/errbridge/growarray"
	"github.com/shiwano/errbridge/internal/alloc"
)

func collect[T any](a *growarray.Array[T]) []T {
	var out []T
	for _, v := range a.All() {
		out = append(out, v)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("rejects zero-sized elements", func(t *testing.T) {
		a, err := growarray.New[struct{}]()
		require.ErrorIs(t, err, growarray.ErrZeroSizedElement)
		require.Nil(t, a)
	})

	t.Run("starts empty without storage", func(t *testing.T) {
		a, err := growarray.New[int32]()
		require.NoError(t, err)
		require.True(t, a.IsEmpty())
		require.Zero(t, a.Cap())
		require.Nil(t, a.Front())
		require.Nil(t, a.Back())
	})
}

func TestIdealCapacity(t *testing.T) {
	t.Run("4-byte elements", func(t *testing.T) {
		a, err := growarray.New[int32]()
		require.NoError(t, err)

		require.Equal(t, 0, a.IdealCapacity(0))
		require.Equal(t, 16, a.IdealCapacity(1))
		require.Equal(t, 16, a.IdealCapacity(16))
		require.Equal(t, 32, a.IdealCapacity(17))
		require.Equal(t, 512, a.IdealCapacity(300))
		require.Equal(t, 1024, a.IdealCapacity(1024))
		require.Equal(t, 2048, a.IdealCapacity(1025))
		require.Equal(t, 3072, a.IdealCapacity(2049))
	})

	t.Run("large elements keep a floor of one", func(t *testing.T) {
		a, err := growarray.New[[100]byte]()
		require.NoError(t, err)

		require.Equal(t, 1, a.IdealCapacity(1))
		require.Equal(t, 2, a.IdealCapacity(2))
		require.Equal(t, 32, a.IdealCapacity(32))
		require.Equal(t, 64, a.IdealCapacity(33))
	})
}

func TestInsertErase(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		a, err := growarray.New[int]()
		require.NoError(t, err)
		defer a.Destroy()

		require.True(t, a.Append(1))
		require.True(t, a.Append(3))
		require.True(t, a.Insert(1, 2))
		require.True(t, a.Insert(0, 0))
		require.Equal(t, []int{0, 1, 2, 3}, collect(a))
		require.Equal(t, 0, *a.Front())
		require.Equal(t, 3, *a.Back())

		next := a.Erase(1)
		require.Equal(t, 1, next)
		require.Equal(t, 2, *a.At(next))
		require.Equal(t, []int{0, 2, 3}, collect(a))

		require.Equal(t, 0, a.EraseRange(0, 2))
		require.Equal(t, []int{3}, collect(a))
	})

	t.Run("failed insert leaves array unchanged", func(t *testing.T) {
		a, err := growarray.New[int64]()
		require.NoError(t, err)
		for i := range 8 {
			require.True(t, a.Append(int64(i)))
		}
		before := collect(a)
		capBefore := a.Cap()

		c := alloc.NewCounter()
		c.FailAll()
		restore := alloc.Use(c)
		defer restore()

		require.False(t, a.Append(99))
		require.Equal(t, before, collect(a))
		require.Equal(t, capBefore, a.Cap())
	})

	t.Run("append grows logarithmically", func(t *testing.T) {
		a, err := growarray.New[int32]()
		require.NoError(t, err)
		defer a.Destroy()

		for i := range 1000 {
			require.True(t, a.Append(int32(i)))
		}
		require.Equal(t, 1000, a.Len())
		// 16, 32, 64, 128, 256, 512, 1024
		require.Equal(t, 7, a.Reallocations())
	})

	t.Run("large elements keep doubling", func(t *testing.T) {
		a, err := growarray.New[[8192]byte]()
		require.NoError(t, err)
		defer a.Destroy()

		for range 1000 {
			require.True(t, a.Append([8192]byte{}))
		}
		require.Equal(t, 1000, a.Len())
		// 1, 2, 4, ..., 1024
		require.Equal(t, 11, a.Reallocations())
		require.Equal(t, 1024, a.Cap())
		require.Equal(t, 4096, a.IdealCapacity(3000))
	})

	t.Run("page sized elements keep doubling", func(t *testing.T) {
		a, err := growarray.New[[4096]byte]()
		require.NoError(t, err)
		defer a.Destroy()

		require.Equal(t, 1, a.IdealCapacity(1))
		require.Equal(t, 64, a.IdealCapacity(33))
		require.Equal(t, 1024, a.IdealCapacity(1000))
	})
}

func TestShrink(t *testing.T) {
	t.Run("clear keeps hysteresis floor", func(t *testing.T) {
		a, err := growarray.New[int32]()
		require.NoError(t, err)
		for i := range 100 {
			require.True(t, a.Append(int32(i)))
		}
		require.Equal(t, 128, a.Cap())

		a.Clear()
		require.Zero(t, a.Len())
		require.Equal(t, 16, a.Cap())
	})

	t.Run("alternating insert and erase does not thrash", func(t *testing.T) {
		a, err := growarray.New[int32]()
		require.NoError(t, err)
		for i := range 17 {
			require.True(t, a.Append(int32(i)))
		}
		reallocs := a.Reallocations()

		for range 10 {
			a.Erase(a.Len() - 1)
			require.True(t, a.Append(0))
		}
		require.Equal(t, reallocs, a.Reallocations())
	})

	t.Run("custom hysteresis", func(t *testing.T) {
		a, err := growarray.New[int32](growarray.WithHysteresis(0))
		require.NoError(t, err)
		for i := range 40 {
			require.True(t, a.Append(int32(i)))
		}
		a.EraseRange(0, 40)
		require.Zero(t, a.Cap())
	})

	t.Run("destroy balances allocations", func(t *testing.T) {
		c := alloc.NewCounter()
		restore := alloc.Use(c)
		defer restore()

		a, err := growarray.New[int32]()
		require.NoError(t, err)
		for i := range 500 {
			require.True(t, a.Append(int32(i)))
		}
		require.Equal(t, 1, c.Live())

		a.Destroy()
		require.Zero(t, c.Live())
		require.Zero(t, c.LiveBytes())
	})
}

func TestSearch(t *testing.T) {
	a, err := growarray.New[int]()
	require.NoError(t, err)
	defer a.Destroy()

	for _, v := range []int{10, 20, 30, 40} {
		require.True(t, a.Append(v))
	}

	pos, found := growarray.Search(a, 30, cmp.Compare[int])
	require.True(t, found)
	require.Equal(t, 2, pos)

	pos, found = growarray.Search(a, 25, cmp.Compare[int])
	require.False(t, found)
	require.Equal(t, 2, pos)

	require.Equal(t, 4, growarray.InsertionPoint(a, 99, cmp.Compare[int]))
	require.Equal(t, 0, growarray.InsertionPoint(a, 1, cmp.Compare[int]))

	require.Equal(t, 1, growarray.Find(a, func(v int) bool { return v > 15 }))
	require.Equal(t, a.Len(), growarray.Find(a, func(v int) bool { return v > 100 }))

	t.Run("insert at insertion point keeps order", func(t *testing.T) {
		for _, v := range []int{25, 5, 45} {
			require.True(t, a.Insert(growarray.InsertionPoint(a, v, cmp.Compare[int]), v))
		}
		require.True(t, slices.IsSorted(collect(a)))
	})
}
