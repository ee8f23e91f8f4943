package workflows

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// Batsman is the state of the cricket workflow.
type Batsman struct {
	Runs  int `json:"runs"`
	Balls int `json:"balls"`
	Fours int `json:"fours"`
	Sixes int `json:"sixes"`

	StrikeRate       float64 `json:"sr"`
	BallsPerBoundary float64 `json:"bpb"`
	BoundaryPercent  float64 `json:"boundary_percent"`
	Summary          string  `json:"summary"`
}

// NewCricket fans out from START into three statistics nodes that join in
// calculate_summary.
func NewCricket() (*stategraph.CompiledGraph[Batsman], error) {
	sc := stategraph.NewSchema[Batsman]()
	stategraph.ReplaceField(sc, "runs", func(s *Batsman) *int { return &s.Runs })
	stategraph.ReplaceField(sc, "balls", func(s *Batsman) *int { return &s.Balls }).Required()
	stategraph.ReplaceField(sc, "fours", func(s *Batsman) *int { return &s.Fours })
	stategraph.ReplaceField(sc, "sixes", func(s *Batsman) *int { return &s.Sixes })
	sr := stategraph.ReplaceField(sc, "sr", func(s *Batsman) *float64 { return &s.StrikeRate })
	bpb := stategraph.ReplaceField(sc, "bpb", func(s *Batsman) *float64 { return &s.BallsPerBoundary })
	bp := stategraph.ReplaceField(sc, "boundary_percent", func(s *Batsman) *float64 { return &s.BoundaryPercent })
	summary := stategraph.ReplaceField(sc, "summary", func(s *Batsman) *string { return &s.Summary })

	strikeRate := func(_ stategraph.Context, s Batsman) (stategraph.Update[Batsman], error) {
		if s.Balls <= 0 {
			return stategraph.Update[Batsman]{}, errors.New("balls must be positive")
		}
		return stategraph.Writes(sr.Set(float64(s.Runs) / float64(s.Balls) * 100)), nil
	}
	ballsPerBoundary := func(_ stategraph.Context, s Batsman) (stategraph.Update[Batsman], error) {
		boundaries := s.Fours + s.Sixes
		if boundaries == 0 {
			return stategraph.Writes(bpb.Set(0)), nil
		}
		return stategraph.Writes(bpb.Set(float64(s.Balls) / float64(boundaries))), nil
	}
	boundaryPercent := func(_ stategraph.Context, s Batsman) (stategraph.Update[Batsman], error) {
		if s.Runs == 0 {
			return stategraph.Writes(bp.Set(0)), nil
		}
		return stategraph.Writes(bp.Set(float64(s.Fours*4+s.Sixes*6) / float64(s.Runs) * 100)), nil
	}
	summarize := func(_ stategraph.Context, s Batsman) (stategraph.Update[Batsman], error) {
		return stategraph.Writes(summary.Set(fmt.Sprintf(
			"Strike rate %.2f, balls per boundary %.2f, boundary percent %.2f",
			s.StrikeRate, s.BallsPerBoundary, s.BoundaryPercent))), nil
	}

	g := stategraph.NewGraph(sc).
		AddNode("calculate_sr", strikeRate).
		AddNode("calculate_bpb", ballsPerBoundary).
		AddNode("calculate_boundary_percent", boundaryPercent).
		AddNode("calculate_summary", summarize)
	for _, id := range []string{"calculate_sr", "calculate_bpb", "calculate_boundary_percent"} {
		g.SetEntry(id).AddEdge(id, "calculate_summary")
	}
	return g.AddEdge("calculate_summary", stategraph.END).Compile()
}
