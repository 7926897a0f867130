package machine

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
)

// Tracer writes one record per executed instruction, annotated with a
// per-run id so that interleaved trace files can be told apart. The dump of
// the register file uses spew, which prints unexported structure that %v
// would hide.
type Tracer struct {
	w     io.Writer
	runID string
	spew  *spew.ConfigState
	clock int
}

// NewTracer creates a tracer writing to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{
		w:     w,
		runID: uuid.NewString(),
		spew: &spew.ConfigState{
			Indent:                  "\t",
			DisableMethods:          false,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

// RunID returns the id stamped on every record of this tracer.
func (t *Tracer) RunID() string {
	return t.runID
}

func (m *Machine) trace(instr Instruction) {
	t := m.Tracer
	if t == nil {
		return
	}
	fmt.Fprintf(t.w, "%% machine %s run %s clock %d pc %d: %v\n", m.ID, t.runID, t.clock, m.PC-1, instr)
	fmt.Fprintf(t.w, "registers: %s", t.spew.Sdump(m.Registers))
	fmt.Fprintf(t.w, "control: %d frames, environments: %d, choice points: %d, trail: %d\n",
		len(m.ControlStack), len(m.EnvironmentStack), len(m.ChoiceStack), m.Bindings.Checkpoint())
	t.clock++
}

func (m *Machine) traceBacktrack(cp *ChoicePoint, next int) {
	t := m.Tracer
	if t == nil {
		return
	}
	fmt.Fprintf(t.w, "%% machine %s run %s clock %d: backtrack to %d (call level %d, %d alternatives left)\n",
		m.ID, t.runID, t.clock, next, cp.CallLevel, len(cp.Alternatives)-1)
}
