package workflows

import (
	"errors"
	"math"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// BMIState is the state of the bmi workflow.
type BMIState struct {
	Weight   float64 `json:"weight"` // kg
	Height   float64 `json:"height"` // m
	BMI      float64 `json:"bmi"`
	Category string  `json:"category"`
}

// NewBMI builds calculate_bmi -> label_category.
func NewBMI() (*stategraph.CompiledGraph[BMIState], error) {
	sc := stategraph.NewSchema[BMIState]()
	stategraph.ReplaceField(sc, "weight", func(s *BMIState) *float64 { return &s.Weight }).Required()
	stategraph.ReplaceField(sc, "height", func(s *BMIState) *float64 { return &s.Height }).Required()
	bmi := stategraph.ReplaceField(sc, "bmi", func(s *BMIState) *float64 { return &s.BMI })
	category := stategraph.ReplaceField(sc, "category", func(s *BMIState) *string { return &s.Category })

	calculate := func(_ stategraph.Context, s BMIState) (stategraph.Update[BMIState], error) {
		if s.Height <= 0 || s.Weight <= 0 {
			return stategraph.Update[BMIState]{}, errors.New("weight and height must be positive")
		}
		v := s.Weight / (s.Height * s.Height)
		return stategraph.Writes(bmi.Set(math.Round(v*100) / 100)), nil
	}
	label := func(_ stategraph.Context, s BMIState) (stategraph.Update[BMIState], error) {
		return stategraph.Writes(category.Set(bmiCategory(s.BMI))), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("calculate_bmi", calculate).
		AddNode("label_category", label).
		SetEntry("calculate_bmi").
		AddEdge("calculate_bmi", "label_category").
		AddEdge("label_category", stategraph.END).
		Compile()
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
