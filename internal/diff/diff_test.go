package diff

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type businessForm struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	CoverImageURL *string          `json:"coverImageUrl,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func sampleRecord() map[string]any {
	return map[string]any{
		"name":        "La Esquina",
		"description": "Bar deportivo",
		"points":      json.Number("150"),
		"active":      true,
		"location":    map[string]any{"province": "San José", "canton": "Escazú"},
		"tags":        []any{"bar", "pizza"},
		"logoUrl":     nil,
	}
}

func TestComputeSameRecordIsEmpty(t *testing.T) {
	rec := sampleRecord()
	assert.Empty(t, Compute(rec, rec))
	assert.Empty(t, Compute(sampleRecord(), sampleRecord()))
}

func TestComputeReturnsOnlyChangedKeys(t *testing.T) {
	form := map[string]any{
		"name":        "La Esquina",
		"description": "Bar y restaurante",
		"points":      150,
		"location":    map[string]any{"province": "San José", "canton": "Santa Ana"},
		"tags":        []any{"bar", "pizza"},
	}
	changes := Compute(form, sampleRecord())
	assert.Equal(t, []string{"description", "location"}, Keys(changes))
	for k := range changes {
		assert.Contains(t, form, k)
	}
}

func TestComputeAbsentValuesNeverIncluded(t *testing.T) {
	form := map[string]any{
		"name":        nil,
		"points":      math.NaN(),
		"description": "Bar deportivo",
	}
	assert.Empty(t, Compute(form, sampleRecord()))
}

func TestComputeNewKeyIsChange(t *testing.T) {
	form := map[string]any{"logoUrl": "https://cdn/logo.png", "wazeLink": "https://waze"}
	changes := Compute(form, sampleRecord())
	assert.Equal(t, []string{"logoUrl", "wazeLink"}, Keys(changes))
}

func TestComputeNumbersCompareByValue(t *testing.T) {
	orig := map[string]any{"price": json.Number("1500.50"), "points": json.Number("10")}
	form := map[string]any{"price": 1500.5, "points": int64(10)}
	assert.Empty(t, Compute(form, orig))

	form["price"] = decimal.RequireFromString("1500.51")
	assert.Equal(t, []string{"price"}, Keys(Compute(form, orig)))
}

func TestComputeTypeChangeIsChange(t *testing.T) {
	orig := map[string]any{"points": json.Number("10")}
	form := map[string]any{"points": "10"}
	assert.Equal(t, []string{"points"}, Keys(Compute(form, orig)))
}

func TestComputeArrayOrderMatters(t *testing.T) {
	form := map[string]any{"tags": []any{"pizza", "bar"}}
	assert.Equal(t, []string{"tags"}, Keys(Compute(form, sampleRecord())))
}

func TestComputeDeterministic(t *testing.T) {
	form := map[string]any{"name": "Otro", "tags": []any{"x"}, "active": false}
	first := Compute(form, sampleRecord())
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Compute(form, sampleRecord()))
	}
}

func TestStructSkipsUnsubmittedFields(t *testing.T) {
	original := businessForm{
		Name:        ptr("La Esquina"),
		Description: ptr("Bar deportivo"),
		Price:       ptr(decimal.RequireFromString("10.00")),
		Tags:        []string{"bar"},
	}
	form := businessForm{
		Name:  ptr("La Esquina"),
		Price: ptr(decimal.RequireFromString("10")),
		Tags:  []string{"bar"},
	}
	changes, err := Struct(form, original)
	require.NoError(t, err)
	assert.Empty(t, changes)

	form.CoverImageURL = ptr("https://cdn/cover.png")
	form.Name = ptr("La Nueva Esquina")
	changes, err = Struct(form, original)
	require.NoError(t, err)
	assert.Equal(t, []string{"coverImageUrl", "name"}, Keys(changes))
	assert.Equal(t, "La Nueva Esquina", changes["name"])
}

func TestStructIdenticalIsEmpty(t *testing.T) {
	rec := businessForm{Name: ptr("A"), Tags: []string{"a", "b"}}
	changes, err := Struct(rec, rec)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestEqualNested(t *testing.T) {
	a := map[string]any{"schedule": []any{map[string]any{"day": "monday", "open": json.Number("480"), "note": nil}}}
	b := map[string]any{"schedule": []any{map[string]any{"day": "monday", "open": 480}}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, map[string]any{"schedule": []any{}}))
	assert.True(t, Equal(nil, math.NaN()))
	assert.False(t, Equal(nil, ""))
}
