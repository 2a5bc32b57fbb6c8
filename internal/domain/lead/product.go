package lead

import (
	"strings"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCategory groups the equipment offered on a lead
type ProductCategory string

const (
	CategorySolar           ProductCategory = "solar"
	CategoryHeatPump        ProductCategory = "heat_pump"
	CategoryBatteryStorage  ProductCategory = "battery_storage"
	CategoryWallbox         ProductCategory = "wallbox"
	CategoryAirConditioning ProductCategory = "air_conditioning"
	CategoryOther           ProductCategory = "other"
)

// IsValid checks if the category is known
func (c ProductCategory) IsValid() bool {
	switch c {
	case CategorySolar, CategoryHeatPump, CategoryBatteryStorage, CategoryWallbox, CategoryAirConditioning, CategoryOther:
		return true
	}
	return false
}

// ProductLine is a product line item offered on a lead
type ProductLine struct {
	ID             uuid.UUID
	Name           string
	Category       ProductCategory
	Type           string
	EstimatedValue decimal.Decimal
	FinalValue     *decimal.Decimal
	Specifications map[string]string
}

// ProductInput carries the caller-supplied fields of a new line item
type ProductInput struct {
	Name           string
	Category       ProductCategory
	Type           string
	EstimatedValue decimal.Decimal
	Specifications map[string]string
}

// NewProductLine validates input and creates a line item with a fresh id
func NewProductLine(input ProductInput) (ProductLine, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ProductLine{}, shared.NewValidationError("Product name cannot be empty")
	}
	if len(name) > 200 {
		return ProductLine{}, shared.NewValidationError("Product name cannot exceed 200 characters")
	}
	if !input.Category.IsValid() {
		return ProductLine{}, shared.NewValidationError("Unknown product category %q", input.Category)
	}
	if err := validateAmount("Estimated value", input.EstimatedValue); err != nil {
		return ProductLine{}, err
	}

	return ProductLine{
		ID:             uuid.New(),
		Name:           name,
		Category:       input.Category,
		Type:           strings.TrimSpace(input.Type),
		EstimatedValue: input.EstimatedValue,
		Specifications: copyStringMap(input.Specifications),
	}, nil
}

// HasFinalValue reports whether a final value was recorded
func (p ProductLine) HasFinalValue() bool {
	return p.FinalValue != nil
}

// clone returns a deep copy of the line item
func (p ProductLine) clone() ProductLine {
	out := p
	if p.FinalValue != nil {
		v := *p.FinalValue
		out.FinalValue = &v
	}
	out.Specifications = copyStringMap(p.Specifications)
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
