package enginenode

import (
	"context"
	"fmt"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/flows"
)

// DispatchFlow runs the state machine for this utterance.
func DispatchFlow(ctx context.Context, in *GraphState, deps flows.Deps) (*GraphState, error) {
	if in == nil || in.Catalog == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}

	deps.Catalog = in.Catalog
	deps.Now = in.Now
	deps.OrgID = in.Message.OrgID
	deps.Contact = in.Message.Contact

	turn, err := flows.Dispatch(ctx, deps, in.Session, in.Signals, in.Message.ConversationID)
	if err != nil {
		return nil, err
	}

	in.Turn = turn
	return in, nil
}
