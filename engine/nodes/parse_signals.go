package enginenode

import (
	"fmt"
	"time"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/parse"
)

// ParseSignals runs the text parser against the utterance. The reference
// date for relative phrasing is the current instant in the tenant zone.
func ParseSignals(in *GraphState, loc *time.Location) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	in.Signals = parse.Extract(in.Message.Text, in.Now.In(loc))
	return in, nil
}
