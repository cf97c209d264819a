package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// JobState represents the lifecycle state of an import job.
// pending → running → {succeeded, failed}; terminal states never transition.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// JobStatus is the full snapshot published to the status channel after every
// batch and at terminal transitions. Writes are whole-snapshot replacements
// keyed by job id; any number of pollers may read it concurrently.
type JobStatus struct {
	JobID   string         `json:"jobId"`
	State   JobState       `json:"state"`
	Current int            `json:"current"`
	Total   int            `json:"total"`
	Percent int            `json:"percent"`
	Message string         `json:"status,omitempty"`
	Result  *ImportOutcome `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ImportOutcome is the terminal result payload of an import job
type ImportOutcome struct {
	TotalProcessed    int    `json:"totalProcessed"`
	TotalUpserted     int64  `json:"totalUpserted"`
	DuplicatesDropped int    `json:"duplicatesDropped"`
	Message           string `json:"message"`
}

// RawRow is one parsed source row: column name → raw value. Missing cells are
// present as empty strings before the row reaches storage.
type RawRow map[string]string

// ProductRow is a normalized import row ready for the staging merge.
// SKU is already canonical.
type ProductRow struct {
	SKU         string
	Name        string
	Description string
	Price       string
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "sku", Description: "Unique product SKU (case-insensitive)", Required: true, Type: "string", Example: "TSH-BLU-001"},
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Blue Cotton T-Shirt"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
		{Name: "price", Description: "Product price", Required: false, Type: "number", Example: "29.99"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}

// UploadResponse acknowledges an accepted import upload
type UploadResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}
