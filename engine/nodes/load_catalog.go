package enginenode

import (
	"context"
	"fmt"

	"github.com/zapagenda/engine/engine/catalog"
	"github.com/zapagenda/engine/engine/contract"
)

// LoadCatalog pulls the tenant's professionals and services for this turn.
// The catalog is read-only inside the engine.
func LoadCatalog(ctx context.Context, in *GraphState, source contract.CatalogSource) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	data, err := source.LoadCatalog(ctx, in.Message.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load catalog org=%s: %w", in.Message.OrgID, err)
	}

	in.Catalog = catalog.FromData(data)
	return in, nil
}
