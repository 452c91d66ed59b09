package loader

import (
	"context"
	"fmt"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/store"
	"github.com/Eudes8/Compta/telemetry"
)

// Target receives an imported dossier. *store.Store implements it.
type Target interface {
	ImportReference(ctx context.Context, ref store.Reference) error
	SaveDocument(ctx context.Context, header piece.Header, lines []piece.Line) (port.SaveResult, error)
}

// ImportResult counts what an import wrote.
type ImportResult struct {
	Journals       int
	Accounts       int
	Counterparties int
	Pieces         int

	// Rejected holds one error per piece the target refused.
	Rejected []error
}

// Import writes the reference data of d, then its pieces. A piece refused by
// the target is recorded in the result and does not stop the import; a
// transport failure does.
func Import(ctx context.Context, target Target, d *Dossier) (*ImportResult, error) {
	timer := telemetry.FromContext(ctx).Start("loader.import")
	defer timer.End()

	refTimer := timer.Child("reference")
	err := target.ImportReference(ctx, store.Reference{
		Journals:       d.Journals,
		Accounts:       d.Accounts,
		Counterparties: d.Counterparties,
	})
	refTimer.End()
	if err != nil {
		return nil, fmt.Errorf("import reference data: %w", err)
	}

	result := &ImportResult{
		Journals:       len(d.Journals),
		Accounts:       len(d.Accounts),
		Counterparties: len(d.Counterparties),
	}

	piecesTimer := timer.Child(fmt.Sprintf("pieces (%d)", len(d.Pieces)))
	defer piecesTimer.End()
	for _, doc := range d.Pieces {
		res, err := target.SaveDocument(ctx, doc.Header, doc.Lines)
		if err != nil {
			return result, fmt.Errorf("import piece %s: %w", doc.Header.Number, err)
		}
		if !res.Success {
			result.Rejected = append(result.Rejected, &port.BusinessRejection{
				Op:      "import " + doc.Header.Number,
				Message: res.Message,
			})
			continue
		}
		result.Pieces++
	}
	return result, nil
}
