package workflows

import (
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// CrashState is the state of the crash workflow.
type CrashState struct {
	Input string `json:"input"`
	// HangMS is how long step_2 blocks before finishing.
	HangMS int    `json:"hang_ms"`
	Step1  string `json:"step1"`
	Step2  string `json:"step2"`
	Step3  string `json:"step3"`
}

// NewCrash builds step_1 -> step_2 -> step_3 where step_2 hangs for
// HangMS. Cancelling the run while step_2 hangs leaves the step_1
// checkpoint behind; resuming the thread without a value re-runs step_2
// and finishes.
func NewCrash() (*stategraph.CompiledGraph[CrashState], error) {
	sc := stategraph.NewSchema[CrashState]()
	stategraph.ReplaceField(sc, "input", func(s *CrashState) *string { return &s.Input }).Required()
	stategraph.ReplaceField(sc, "hang_ms", func(s *CrashState) *int { return &s.HangMS })
	step1 := stategraph.ReplaceField(sc, "step1", func(s *CrashState) *string { return &s.Step1 })
	step2 := stategraph.ReplaceField(sc, "step2", func(s *CrashState) *string { return &s.Step2 })
	step3 := stategraph.ReplaceField(sc, "step3", func(s *CrashState) *string { return &s.Step3 })

	done := func(f stategraph.Value[CrashState, string]) stategraph.NodeFunc[CrashState] {
		return func(ctx stategraph.Context, _ CrashState) (stategraph.Update[CrashState], error) {
			ctx.Logger().Info("step executed")
			return stategraph.Writes(f.Set("done")), nil
		}
	}
	hang := func(ctx stategraph.Context, s CrashState) (stategraph.Update[CrashState], error) {
		ctx.Logger().Info("step hanging", "hang_ms", s.HangMS)
		timer := time.NewTimer(time.Duration(s.HangMS) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return stategraph.Update[CrashState]{}, ctx.Err()
		case <-timer.C:
		}
		return stategraph.Writes(step2.Set("done")), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("step_1", done(step1)).
		AddNode("step_2", hang).
		AddNode("step_3", done(step3)).
		SetEntry("step_1").
		AddEdge("step_1", "step_2").
		AddEdge("step_2", "step_3").
		AddEdge("step_3", stategraph.END).
		Compile()
}
