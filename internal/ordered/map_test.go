package ordered_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteingym/pg2-benchmark/internal/ordered"
)

func TestSetKeepsFirstPosition(t *testing.T) {
	m := ordered.New[int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())
}

func TestMarshalPreservesOrder(t *testing.T) {
	m := ordered.New[float64]()
	m.Set("zeta", 1)
	m.Set("alpha", 0.5)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":0.5}`, string(data))
}

func TestUnmarshalPreservesOrder(t *testing.T) {
	var m ordered.Map[*ordered.Map[int]]
	err := json.Unmarshal([]byte(`{"t2": {"1": 1, "0": 0}, "t1": {"9": 9}}`), &m)
	require.NoError(t, err)

	assert.Equal(t, []string{"t2", "t1"}, m.Keys())
	inner, ok := m.Get("t2")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "0"}, inner.Keys())
}

func TestUnmarshalRejectsNonObject(t *testing.T) {
	var m ordered.Map[int]
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"a": "x"}`), &m))
}

func TestZeroValueMarshalsEmpty(t *testing.T) {
	var m ordered.Map[string]
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
