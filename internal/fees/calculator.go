package fees

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"loadboard/internal/models"
)

// ErrInvalidInput signals missing or malformed load attributes. Callers
// must re-prompt; a load never posts with a silently-zero fee.
var ErrInvalidInput = errors.New("invalid load attributes")

// Breakdown itemizes the booking fee. Total is the sum of the components,
// already in the gateway's minimum currency unit.
type Breakdown struct {
	Base      int64 `json:"base"`
	Weight    int64 `json:"weight"`
	Material  int64 `json:"material"`
	TruckType int64 `json:"truck_type"`
	Total     int64 `json:"total"`
}

// Calculator computes booking fees from a schedule. It is pure: identical
// input always yields an identical breakdown, so a price shown to the
// client before payment cannot drift.
type Calculator struct {
	schedule Schedule
}

func NewCalculator(schedule Schedule) (*Calculator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fee schedule: %w", err)
	}
	return &Calculator{schedule: schedule}, nil
}

// Calculate returns the booking-fee breakdown for a load draft.
func (c *Calculator) Calculate(draft models.LoadDraft) (Breakdown, error) {
	material := strings.TrimSpace(draft.Material)
	truckType := strings.TrimSpace(draft.TruckType)

	if material == "" {
		return Breakdown{}, fmt.Errorf("%w: material is required", ErrInvalidInput)
	}
	if truckType == "" {
		return Breakdown{}, fmt.Errorf("%w: truck type is required", ErrInvalidInput)
	}
	if draft.WeightMT < 0 {
		return Breakdown{}, fmt.Errorf("%w: weight cannot be negative", ErrInvalidInput)
	}

	b := Breakdown{
		Base:      c.schedule.BaseFee,
		Weight:    c.weightFee(draft.WeightMT),
		Material:  c.materialFee(material),
		TruckType: c.truckTypeFee(truckType),
	}
	total := b.Base + b.Weight + b.Material + b.TruckType

	if draft.LoadType == models.LoadTypePart && c.schedule.PartLoadFactor > 0 {
		total = int64(math.Round(float64(total) * c.schedule.PartLoadFactor))
	}

	b.Total = total
	return b, nil
}

func (c *Calculator) weightFee(weightMT float64) int64 {
	for _, bracket := range c.schedule.WeightBrackets {
		if bracket.UpToMT == -1 || weightMT <= bracket.UpToMT {
			return bracket.Fee
		}
	}
	// Unreachable: Validate guarantees an unlimited last bracket.
	return 0
}

func (c *Calculator) materialFee(material string) int64 {
	if fee, ok := c.schedule.Materials[material]; ok {
		return fee
	}
	return c.schedule.DefaultMaterialFee
}

func (c *Calculator) truckTypeFee(truckType string) int64 {
	if fee, ok := c.schedule.TruckTypes[truckType]; ok {
		return fee
	}
	return c.schedule.DefaultTruckFee
}
