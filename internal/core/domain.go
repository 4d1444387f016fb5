package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// OthersSubcategoryID is the fixed identifier of the reserved "Others"
// subcategory. It always exists and is never deletable.
const OthersSubcategoryID = "default-others"

type (
	// Amount is a monetary value that tolerates sloppy stored data: JSON
	// numbers, numeric strings, empty strings and garbage all decode without
	// error. Anything unparseable decodes to 0.
	Amount float64

	Subcategory struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		CreatedAt   string `json:"createdAt,omitempty"`
	}

	Category struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Description    string   `json:"description,omitempty"`
		SubcategoryIDs []string `json:"selectedSubCategories"`
		CreatedAt      string   `json:"createdAt,omitempty"`
	}

	// CostLine is a named unit-price × quantity item (a labour worker type,
	// a material type).
	CostLine struct {
		Name      string `json:"name"`
		UnitPrice Amount `json:"unitPrice"`
		Quantity  Amount `json:"quantity"`
	}

	// SubcategoryCost is a free-form labeled amount attached to one
	// subcategory, without a unit-price breakdown.
	SubcategoryCost struct {
		Label  string `json:"label,omitempty"`
		Amount Amount `json:"amount"`
	}

	// Expense is the canonical (third generation) record shape. Older
	// generations lack CategoryName and/or SubcategoryCosts; Normalize lifts
	// any stored record to this shape.
	Expense struct {
		ID           string `json:"id"`
		Date         string `json:"date"`
		CategoryID   string `json:"category"`
		CategoryName string `json:"categoryName,omitempty"`
		ItemName     string `json:"itemName,omitempty"`
		Description  string `json:"description,omitempty"`

		LabourEntries   []CostLine `json:"labourEntries"`
		MaterialEntries []CostLine `json:"materialEntries"`

		// SubcategoryCosts maps a subcategory id to its cost entries.
		SubcategoryCosts map[string][]SubcategoryCost `json:"subCategoryCostEntries"`

		// OtherCosts is the legacy flat field. Current-generation records
		// store the aggregate of the dynamic entries here for backward
		// compatibility; pure legacy records hold the only "other" value.
		OtherCosts string `json:"otherCosts,omitempty"`

		CreatedAt string `json:"createdAt,omitempty"`
	}

	Milestone struct {
		ID          string `json:"id"`
		Date        string `json:"date"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
		CreatedAt   string `json:"createdAt,omitempty"`
	}

	// FarmInfo is the singleton farm metadata document.
	FarmInfo struct {
		Name      string  `json:"name,omitempty"`
		Location  string  `json:"location,omitempty"`
		SizeAcres float64 `json:"sizeAcres,omitempty"`
		UpdatedAt string  `json:"updatedAt,omitempty"`
	}
)

var (
	ErrEmptyName           = errors.New("name is required")
	ErrEmptyDate           = errors.New("date is required")
	ErrEmptyCategory       = errors.New("category is required")
	ErrNegativeAmount      = errors.New("amounts cannot be negative")
	ErrNoCostComponent     = errors.New("at least one cost component is required")
	ErrReservedSubcategory = errors.New(`the reserved "Others" subcategory cannot be deleted`)
)

// UnmarshalJSON accepts a JSON number, a numeric string, null, or anything
// else. Parse failures decode to 0 rather than failing the whole record; one
// bad field must never make a stored expense unreadable.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(ParseAmount(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(sanitize(f))
	return nil
}

// ParseAmount parses a stored numeric string. Missing, malformed and
// non-finite values come back as 0, never as an error.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return sanitize(f)
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// LineTotal returns unitPrice × quantity for one cost line. The result is
// always finite; malformed inputs have already decoded to 0.
func (l CostLine) LineTotal() float64 {
	return sanitize(float64(l.UnitPrice) * float64(l.Quantity))
}

// Normalize lifts an expense of any stored generation to the current shape:
// nil slices and maps become empty, so aggregation needs no generation
// branches. It returns a copy and leaves the input untouched.
func (e Expense) Normalize() Expense {
	if e.LabourEntries == nil {
		e.LabourEntries = []CostLine{}
	}
	if e.MaterialEntries == nil {
		e.MaterialEntries = []CostLine{}
	}
	if e.SubcategoryCosts == nil {
		e.SubcategoryCosts = map[string][]SubcategoryCost{}
	}
	return e
}

// Validate checks an expense at write time. Stored records may still violate
// these rules; readers must not assume they hold.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	for _, entry := range append(append([]CostLine{}, e.LabourEntries...), e.MaterialEntries...) {
		if entry.UnitPrice < 0 || entry.Quantity < 0 {
			return ErrNegativeAmount
		}
	}
	for _, entries := range e.SubcategoryCosts {
		for _, entry := range entries {
			if entry.Amount < 0 {
				return ErrNegativeAmount
			}
		}
	}
	if ParseAmount(e.OtherCosts) < 0 {
		return ErrNegativeAmount
	}
	if len(e.LabourEntries) == 0 && len(e.MaterialEntries) == 0 && e.effectiveOtherTotal() <= 0 {
		return ErrNoCostComponent
	}
	return nil
}

// effectiveOtherTotal mirrors the write path: the dynamic entries' sum when
// any are present, otherwise the flat field.
func (e Expense) effectiveOtherTotal() float64 {
	dynamic := 0.0
	for _, entries := range e.SubcategoryCosts {
		for _, entry := range entries {
			dynamic += float64(entry.Amount)
		}
	}
	if dynamic > 0 {
		return dynamic
	}
	return ParseAmount(e.OtherCosts)
}

// EffectiveOtherCosts returns the value the OtherCosts field must carry after
// a write: the aggregate of the dynamic entries when present, else the flat
// value, formatted as the legacy numeric string (empty when zero).
func (e Expense) EffectiveOtherCosts() string {
	total := e.effectiveOtherTotal()
	if total <= 0 {
		return ""
	}
	return strconv.FormatFloat(total, 'f', -1, 64)
}

func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (m Milestone) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.Date) == "" {
		return ErrEmptyDate
	}
	return nil
}

// ParseDate parses a stored expense date. Accepts plain dates and RFC 3339
// timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
