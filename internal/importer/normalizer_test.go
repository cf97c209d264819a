package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

func TestNormalizeBatchCanonicalizesSKU(t *testing.T) {
	rows, dropped := NormalizeBatch([]models.RawRow{
		{"sku": "  abc-001 ", "name": "Widget", "description": "A widget", "price": "9.99"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, "ABC-001", rows[0].SKU)
	assert.Equal(t, "Widget", rows[0].Name)
	assert.Equal(t, "A widget", rows[0].Description)
	assert.Equal(t, "9.99", rows[0].Price)
}

func TestNormalizeBatchLastOccurrenceWins(t *testing.T) {
	rows, dropped := NormalizeBatch([]models.RawRow{
		{"sku": "DUP-1", "name": "First"},
		{"sku": "OTHER", "name": "Other"},
		{"sku": "dup-1", "name": "Second"},
		{"sku": " DUP-1 ", "name": "Third"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 2, dropped)
	// Retained rows keep the order their last occurrences had in the input.
	assert.Equal(t, "OTHER", rows[0].SKU)
	assert.Equal(t, "DUP-1", rows[1].SKU)
	assert.Equal(t, "Third", rows[1].Name)
}

func TestNormalizeBatchMissingColumnsBecomeEmpty(t *testing.T) {
	rows, dropped := NormalizeBatch([]models.RawRow{
		{"sku": "SOLO-1", "name": "No extras"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, 0, dropped)
	assert.Empty(t, rows[0].Description)
	assert.Empty(t, rows[0].Price)
}

func TestNormalizeBatchEmptyInput(t *testing.T) {
	rows, dropped := NormalizeBatch(nil)
	assert.Empty(t, rows)
	assert.Equal(t, 0, dropped)
}

func TestNormalizeBatchDuplicatesOnlyWithinBatch(t *testing.T) {
	first, droppedFirst := NormalizeBatch([]models.RawRow{
		{"sku": "X-1", "name": "A"},
	})
	second, droppedSecond := NormalizeBatch([]models.RawRow{
		{"sku": "X-1", "name": "B"},
	})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, 0, droppedFirst)
	assert.Equal(t, 0, droppedSecond)
}
