package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type taggedFixture struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Skipped string `db:"-"`
	NoTag   string
}

func TestStructTagValues(t *testing.T) {
	got := StructTagValues(taggedFixture{})
	assert.Equal(t, []string{"id", "name"}, got)

	// pointer input behaves the same
	got = StructTagValues(&taggedFixture{})
	assert.Equal(t, []string{"id", "name"}, got)
}

func TestStructToMap(t *testing.T) {
	got := StructToMap(taggedFixture{ID: "abc", Name: "Jane", Skipped: "x", NoTag: "y"})

	assert.Equal(t, map[string]any{"id": "abc", "name": "Jane"}, got)
}

func TestNanoID(t *testing.T) {
	id := NanoID()
	assert.Len(t, id, NanoidSize)

	assert.NotEqual(t, id, NanoID())

	assert.Len(t, NanoIDSize(12), 12)
	assert.Len(t, NanoIDSize(0), NanoidSize)
}
