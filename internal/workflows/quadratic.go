package workflows

import (
	"fmt"
	"math"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// QuadState is the state of the quadratic workflow.
type QuadState struct {
	A            float64   `json:"a"`
	B            float64   `json:"b"`
	C            float64   `json:"c"`
	Equation     string    `json:"equation"`
	Discriminant float64   `json:"discriminant"`
	Roots        []float64 `json:"roots"`
	Result       string    `json:"result"`
}

type rootKind string

const (
	realRoots     rootKind = "real_roots"
	repeatedRoots rootKind = "repeated_roots"
	noRealRoots   rootKind = "no_real_roots"
)

// NewQuadratic builds show_equation -> calculate_discriminant and routes
// to one of three root nodes named after the router labels.
func NewQuadratic() (*stategraph.CompiledGraph[QuadState], error) {
	sc := stategraph.NewSchema[QuadState]()
	// a = 0 is not a quadratic.
	stategraph.ReplaceField(sc, "a", func(s *QuadState) *float64 { return &s.A }).Required()
	stategraph.ReplaceField(sc, "b", func(s *QuadState) *float64 { return &s.B })
	stategraph.ReplaceField(sc, "c", func(s *QuadState) *float64 { return &s.C })
	equation := stategraph.ReplaceField(sc, "equation", func(s *QuadState) *string { return &s.Equation })
	disc := stategraph.ReplaceField(sc, "discriminant", func(s *QuadState) *float64 { return &s.Discriminant })
	roots := stategraph.ReplaceField(sc, "roots", func(s *QuadState) *[]float64 { return &s.Roots })
	result := stategraph.ReplaceField(sc, "result", func(s *QuadState) *string { return &s.Result })

	show := func(_ stategraph.Context, s QuadState) (stategraph.Update[QuadState], error) {
		return stategraph.Writes(equation.Set(fmt.Sprintf("%gx^2 + %gx + %g", s.A, s.B, s.C))), nil
	}
	discriminant := func(_ stategraph.Context, s QuadState) (stategraph.Update[QuadState], error) {
		return stategraph.Writes(disc.Set(s.B*s.B - 4*s.A*s.C)), nil
	}
	realNode := func(_ stategraph.Context, s QuadState) (stategraph.Update[QuadState], error) {
		sq := math.Sqrt(s.Discriminant)
		r1 := (-s.B + sq) / (2 * s.A)
		r2 := (-s.B - sq) / (2 * s.A)
		return stategraph.Writes(
			roots.Set([]float64{r1, r2}),
			result.Set(fmt.Sprintf("The roots are %g and %g", r1, r2)),
		), nil
	}
	repeated := func(_ stategraph.Context, s QuadState) (stategraph.Update[QuadState], error) {
		r := -s.B / (2 * s.A)
		return stategraph.Writes(
			roots.Set([]float64{r}),
			result.Set(fmt.Sprintf("Only repeating root is %g", r)),
		), nil
	}
	none := func(_ stategraph.Context, _ QuadState) (stategraph.Update[QuadState], error) {
		return stategraph.Writes(roots.Set(nil), result.Set("No real roots exist")), nil
	}

	classify := func(_ stategraph.Context, s QuadState) rootKind {
		switch {
		case s.Discriminant > 0:
			return realRoots
		case s.Discriminant == 0:
			return repeatedRoots
		default:
			return noRealRoots
		}
	}

	return stategraph.NewGraph(sc).
		AddNode("show_equation", show).
		AddNode("calculate_discriminant", discriminant).
		AddNode(string(realRoots), realNode).
		AddNode(string(repeatedRoots), repeated).
		AddNode(string(noRealRoots), none).
		SetEntry("show_equation").
		AddEdge("show_equation", "calculate_discriminant").
		AddConditionalEdge("calculate_discriminant",
			stategraph.Route(classify, realRoots, repeatedRoots, noRealRoots)).
		AddEdge(string(realRoots), stategraph.END).
		AddEdge(string(repeatedRoots), stategraph.END).
		AddEdge(string(noRealRoots), stategraph.END).
		Compile()
}
