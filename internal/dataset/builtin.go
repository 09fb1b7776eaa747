package dataset

import (
	"strings"

	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// DefaultBaseURL is the versioned repository the built-in datasets are
// published to. Paths below it never change content.
const DefaultBaseURL = "https://raw.githubusercontent.com/monte-rs/monte-datasets/main"

// DiabetesSchema is the Pima Indians diabetes table: a required row id,
// eight nullable measurements and a nullable class label.
func DiabetesSchema() *schema.Schema {
	return schema.MustNew(
		schema.Required("id", schema.Integer),
		schema.Optional("preg", schema.Integer),
		schema.Optional("plas", schema.Integer),
		schema.Optional("pres", schema.Integer),
		schema.Optional("skin", schema.Integer),
		schema.Optional("insu", schema.Integer),
		schema.Optional("mass", schema.Float),
		schema.Optional("pedi", schema.Float),
		schema.Optional("age", schema.Integer),
		schema.Optional("class", schema.Text),
	)
}

// Builtin returns the built-in catalog rooted at baseURL
// ("" means DefaultBaseURL).
func Builtin(baseURL string) []Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return []Provider{
		{
			Name:        "diabetes",
			Description: "Pima Indians diabetes (JSON; null or absent key is missing)",
			Locator:     fetch.Locator(baseURL + "/diabetes/diabetes.json"),
			Schema:      DiabetesSchema(),
			Decoder:     record.NewJSONDecoder(record.Nulls{}),
		},
		{
			Name:        "diabetes-csv",
			Description: "Pima Indians diabetes (CSV; empty cell is missing)",
			Locator:     fetch.Locator(baseURL + "/diabetes/diabetes.csv"),
			Schema:      DiabetesSchema(),
			Decoder:     record.NewCSVDecoder(record.DefaultCSVNulls),
		},
	}
}
