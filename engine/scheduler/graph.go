package scheduler

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/zapagenda/engine/engine/flows"
	enginenode "github.com/zapagenda/engine/engine/nodes"
)

func (e *Engine) compileHandleIncomingGraph(
	ctx context.Context,
) (compose.Runnable[enginenode.GraphInput, enginenode.GraphOutput], error) {
	graph := compose.NewGraph[enginenode.GraphInput, enginenode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in enginenode.GraphInput) (*enginenode.GraphState, error) {
			return enginenode.ValidateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_state",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.LoadState(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_state: %w", err)
	}

	if err := graph.AddLambdaNode("load_catalog",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.LoadCatalog(ctx, in, e.catalogSource)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_catalog: %w", err)
	}

	if err := graph.AddLambdaNode("parse_signals",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.ParseSignals(in, e.location)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node parse_signals: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_flow",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.DispatchFlow(ctx, in, flows.Deps{
				Gateway:           e.gateway,
				Location:          e.location,
				CallTimeout:       e.gatewayTimeout,
				NewIdempotencyKey: e.newKey,
			})
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_flow: %w", err)
	}

	if err := graph.AddLambdaNode("persist_state",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.PersistState(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_state: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_result",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (enginenode.GraphOutput, error) {
			return enginenode.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_result: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_state"},
		{"load_state", "load_catalog"},
		{"load_catalog", "parse_signals"},
		{"parse_signals", "dispatch_flow"},
		{"dispatch_flow", "persist_state"},
		{"persist_state", "finalize_result"},
		{"finalize_result", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("scheduler.handle_incoming"))
	if err != nil {
		return nil, fmt.Errorf("compile scheduler graph: %w", err)
	}
	return runner, nil
}
