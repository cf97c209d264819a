package importer

import (
	"catalog-import-service/internal/models"
)

// NormalizeBatch converts an ordered batch of raw rows into canonical import
// rows. The SKU is upper-cased and trimmed; missing cells are already empty
// strings by the time rows leave the reader. When several rows in the batch
// share a canonical SKU only the last occurrence survives: a single merge
// statement cannot resolve an intra-batch collision, so last-write-wins is
// decided here. Dropped duplicates are counted, not reported as errors;
// hand-edited spreadsheets produce them routinely.
func NormalizeBatch(rows []models.RawRow) ([]models.ProductRow, int) {
	if len(rows) == 0 {
		return nil, 0
	}

	lastIndex := make(map[string]int, len(rows))
	for i, row := range rows {
		lastIndex[models.CanonicalSKU(row["sku"])] = i
	}

	out := make([]models.ProductRow, 0, len(lastIndex))
	for i, row := range rows {
		sku := models.CanonicalSKU(row["sku"])
		if lastIndex[sku] != i {
			continue
		}
		out = append(out, models.ProductRow{
			SKU:         sku,
			Name:        row["name"],
			Description: row["description"],
			Price:       row["price"],
		})
	}

	return out, len(rows) - len(out)
}
