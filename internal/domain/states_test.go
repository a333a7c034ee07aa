package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatesTable(t *testing.T) {
	all := States()
	assert.Len(t, all, StateCount)

	seen := make(map[string]bool)
	for _, s := range all {
		assert.Len(t, s.Code, 2, "code %q", s.Code)
		assert.NotEmpty(t, s.Name)
		assert.False(t, seen[s.Code], "duplicate code %q", s.Code)
		seen[s.Code] = true
	}

	// Conventional ordering: Alabama first, Wyoming last.
	assert.Equal(t, State{"AL", "Alabama"}, all[0])
	assert.Equal(t, State{"WY", "Wyoming"}, all[len(all)-1])
}

func TestStatesReturnsCopy(t *testing.T) {
	a := States()
	a[0] = State{"XX", "Nowhere"}

	b := States()
	assert.Equal(t, State{"AL", "Alabama"}, b[0])
}

func TestStateByCode(t *testing.T) {
	s, ok := StateByCode("CA")
	assert.True(t, ok)
	assert.Equal(t, "California", s.Name)

	_, ok = StateByCode("ZZ")
	assert.False(t, ok)
}

func TestIsValidStateCode(t *testing.T) {
	assert.True(t, IsValidStateCode("WY"))
	assert.False(t, IsValidStateCode("DC"))
	assert.False(t, IsValidStateCode("ca"))
	assert.False(t, IsValidStateCode(""))
}
