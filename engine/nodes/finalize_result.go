package enginenode

import (
	"fmt"

	"github.com/zapagenda/engine/engine/contract"
)

// FinalizeResult shapes the turn outcome for the caller. A handled turn
// always carries at least one reply.
func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	if in.Turn.Handled && len(in.Turn.Replies) == 0 {
		return GraphOutput{}, fmt.Errorf("%w: handled turn produced no replies", contract.ErrValidation)
	}

	return GraphOutput{
		Result: contract.Result{
			Handled:  in.Turn.Handled,
			Messages: in.Turn.Replies,
		},
	}, nil
}
