package fees

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WeightBracket covers loads up to UpToMT metric tons inclusive. The last
// bracket must be unlimited (-1).
type WeightBracket struct {
	UpToMT float64 `yaml:"up_to_mt"`
	Fee    int64   `yaml:"fee"`
}

// Schedule is the booking-fee table. It is configuration input, loaded from
// YAML at startup; amounts are in the smallest currency unit.
type Schedule struct {
	BaseFee            int64            `yaml:"base_fee"`
	Materials          map[string]int64 `yaml:"materials"`
	DefaultMaterialFee int64            `yaml:"default_material_fee"`
	WeightBrackets     []WeightBracket  `yaml:"weight_brackets"`
	TruckTypes         map[string]int64 `yaml:"truck_types"`
	DefaultTruckFee    int64            `yaml:"default_truck_fee"`
	PartLoadFactor     float64          `yaml:"part_load_factor"`
}

// LoadSchedule reads and validates a fee schedule from a YAML file.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule: %w", err)
	}

	var schedule Schedule
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parse fee schedule: %w", err)
	}

	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("fee schedule validation failed: %w", err)
	}

	return &schedule, nil
}

// Validate checks the schedule shape: at least one weight bracket, strictly
// increasing limits, an unlimited last bracket, non-negative amounts.
func (s *Schedule) Validate() error {
	if s.BaseFee < 0 || s.DefaultMaterialFee < 0 || s.DefaultTruckFee < 0 {
		return errors.New("fees must be non-negative")
	}

	if len(s.WeightBrackets) == 0 {
		return errors.New("at least one weight bracket is required")
	}
	if s.WeightBrackets[len(s.WeightBrackets)-1].UpToMT != -1 {
		return errors.New("last weight bracket must be unlimited (-1)")
	}
	for i, bracket := range s.WeightBrackets {
		if bracket.Fee < 0 {
			return errors.New("fees must be non-negative")
		}
		if i == 0 {
			continue
		}
		prev := s.WeightBrackets[i-1]
		if prev.UpToMT == -1 {
			return errors.New("no brackets allowed after unlimited bracket")
		}
		if bracket.UpToMT != -1 && bracket.UpToMT <= prev.UpToMT {
			return errors.New("weight brackets must be strictly increasing")
		}
	}

	for _, fee := range s.Materials {
		if fee < 0 {
			return errors.New("fees must be non-negative")
		}
	}
	for _, fee := range s.TruckTypes {
		if fee < 0 {
			return errors.New("fees must be non-negative")
		}
	}

	if s.PartLoadFactor < 0 || s.PartLoadFactor > 1 {
		return errors.New("part_load_factor must be within [0, 1]")
	}

	return nil
}
