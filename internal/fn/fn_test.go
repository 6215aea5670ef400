package fn

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	require.True(t, r.IsOk())
	v, err := r.Unwrap()
	assert.Equal(t, 42, v)
	assert.NoError(t, err)

	e := Err[int](errors.New("boom"))
	assert.False(t, e.IsOk())
	assert.Equal(t, 7, e.UnwrapOr(7))
	assert.EqualError(t, e.Err(), "boom")
}

func TestErrNilStillFails(t *testing.T) {
	r := Err[string](nil)
	assert.False(t, r.IsOk())
	assert.Error(t, r.Err())
}

func TestFromPair(t *testing.T) {
	assert.True(t, FromPair(strconv.Atoi("12")).IsOk())
	assert.False(t, FromPair(strconv.Atoi("x")).IsOk())
}

func TestAndThen(t *testing.T) {
	r := AndThen(Ok("12"), func(s string) Result[int] { return FromPair(strconv.Atoi(s)) })
	assert.Equal(t, 12, r.UnwrapOr(0))

	failed := AndThen(Err[string](errors.New("first")), func(s string) Result[int] {
		t.Fatal("should not be called")
		return Ok(0)
	})
	assert.EqualError(t, failed.Err(), "first")
}

func TestFirstOk(t *testing.T) {
	calls := 0
	r := FirstOk(
		func() Result[string] { calls++; return Errf[string]("profile link missing") },
		func() Result[string] { calls++; return Ok("Jane") },
		func() Result[string] { calls++; return Ok("never") },
	)
	assert.Equal(t, "Jane", r.UnwrapOr(""))
	assert.Equal(t, 2, calls)

	all := FirstOk(
		func() Result[string] { return Errf[string]("a") },
		func() Result[string] { return Errf[string]("b") },
	)
	require.False(t, all.IsOk())
	assert.Contains(t, all.Err().Error(), "a")
	assert.Contains(t, all.Err().Error(), "b")

	assert.False(t, FirstOk[int]().IsOk())
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3}}, Chunk([]int{1, 2, 3}, 2))
	assert.Nil(t, Chunk([]int{1}, 0))
	assert.Nil(t, Chunk([]int{}, 3))
}
