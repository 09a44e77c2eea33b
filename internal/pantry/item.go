package pantry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dukerupert/larder/internal/model"
)

const (
	MaxNameLength = 100
	MaxQuantity   = 10000
)

// Units is the closed set of accepted units. Empty means unspecified.
var Units = []string{
	"kg", "g", "mg", "lb", "oz",
	"L", "mL", "gal", "cup", "tbsp", "tsp",
	"pieces", "items",
	"can", "bottle", "box", "bag", "pack",
}

var ErrInvalidItem = errors.New("invalid pantry item")

// Input is a pantry item as submitted by a client.
type Input struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Quantity   *float64 `json:"quantity"`
	Unit       string   `json:"unit"`
	ExpiryDate string   `json:"expiry_date"`
}

// Normalize validates in and returns the item to store. Names are trimmed and
// title-cased, a missing category is inferred from the name and a missing
// quantity defaults to 1.
func Normalize(in Input) (model.NewPantryItem, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return model.NewPantryItem{}, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = Categorize(name)
	} else if err := checkCategory(category); err != nil {
		return model.NewPantryItem{}, err
	}

	quantity := 1.0
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	if err := checkQuantity(quantity); err != nil {
		return model.NewPantryItem{}, err
	}

	unit := strings.TrimSpace(in.Unit)
	if err := checkUnit(unit); err != nil {
		return model.NewPantryItem{}, err
	}

	item := model.NewPantryItem{
		Name:     name,
		Category: category,
		Quantity: quantity,
		Unit:     unit,
	}
	if s := strings.TrimSpace(in.ExpiryDate); s != "" {
		t, err := parseExpiry(s)
		if err != nil {
			return model.NewPantryItem{}, err
		}
		item.ExpiryDate = &t
	}
	return item, nil
}

// MaxBatch caps how many items one bulk add may carry.
const MaxBatch = 100

// NormalizeBatch validates every item of a bulk add. The error names the
// first offending position.
func NormalizeBatch(in []Input) ([]model.NewPantryItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no pantry items provided", ErrInvalidItem)
	}
	if len(in) > MaxBatch {
		return nil, fmt.Errorf("%w: at most %d items per request", ErrInvalidItem, MaxBatch)
	}
	items := make([]model.NewPantryItem, 0, len(in))
	for i, raw := range in {
		item, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// PatchInput is a partial update as submitted by a client. Absent fields are
// left unchanged.
type PatchInput struct {
	Name       *string  `json:"name"`
	Category   *string  `json:"category"`
	Quantity   *float64 `json:"quantity"`
	Unit       *string  `json:"unit"`
	ExpiryDate *string  `json:"expiry_date"`
}

// NormalizePatch applies the same rules as Normalize to the fields present
// in in. A patch that sets nothing is rejected.
func NormalizePatch(in PatchInput) (model.PantryItemPatch, error) {
	var p model.PantryItemPatch
	if in.Name == nil && in.Category == nil && in.Quantity == nil && in.Unit == nil && in.ExpiryDate == nil {
		return p, fmt.Errorf("%w: nothing to update", ErrInvalidItem)
	}

	if in.Name != nil {
		name, err := normalizeName(*in.Name)
		if err != nil {
			return p, err
		}
		p.Name = &name
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if err := checkCategory(category); err != nil {
			return p, err
		}
		p.Category = &category
	}
	if in.Quantity != nil {
		if err := checkQuantity(*in.Quantity); err != nil {
			return p, err
		}
		p.Quantity = in.Quantity
	}
	if in.Unit != nil {
		unit := strings.TrimSpace(*in.Unit)
		if err := checkUnit(unit); err != nil {
			return p, err
		}
		p.Unit = &unit
	}
	if in.ExpiryDate != nil {
		t, err := parseExpiry(strings.TrimSpace(*in.ExpiryDate))
		if err != nil {
			return p, err
		}
		p.ExpiryDate = &t
	}
	return p, nil
}

func normalizeName(raw string) (string, error) {
	name := titleCase(strings.TrimSpace(raw))
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidItem, MaxNameLength)
	}
	return name, nil
}

func checkCategory(category string) error {
	if !slices.Contains(Categories, category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, category)
	}
	return nil
}

func checkQuantity(q float64) error {
	if q <= 0 || q > MaxQuantity {
		return fmt.Errorf("%w: quantity must be greater than 0 and at most %d", ErrInvalidItem, MaxQuantity)
	}
	return nil
}

func checkUnit(unit string) error {
	if unit != "" && !slices.Contains(Units, unit) {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidItem, unit)
	}
	return nil
}

func parseExpiry(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", ErrInvalidItem)
	}
	return t, nil
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if start {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			start = false
			continue
		}
		b.WriteRune(r)
		if r != '\'' {
			start = !unicode.IsDigit(r)
		}
	}
	return b.String()
}
