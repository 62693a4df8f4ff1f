package codegen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNameCollision is reported for a model whose interface name or file name
// is already taken by an earlier model of the same batch.
var ErrNameCollision = errors.New("interface or file name already generated in this batch")

// ModelFailure records a model that could not be generated.
type ModelFailure struct {
	ModelID   string `json:"modelId,omitempty"`
	ModelName string `json:"modelName"`
	Err       error  `json:"-"`
}

func (f ModelFailure) Error() string {
	return fmt.Sprintf("model %q: %v", f.ModelName, f.Err)
}

func (f ModelFailure) Unwrap() error {
	return f.Err
}

// BatchResult is the outcome of generating a set of models.
type BatchResult struct {
	Interfaces []*GeneratedInterface // In input order
	Failures   []ModelFailure
	Index      string // Content of index.ts for Interfaces
}

// Inventory lists the generated interfaces.
func (r *BatchResult) Inventory() []InventoryEntry {
	return Inventory(r.Interfaces)
}

// GenerateAll generates every model concurrently against a snapshot of the
// model index. A model that fails is reported in Failures and never stops
// its siblings. When two models normalize to the same interface or file
// name, the first one in input order is kept and the later ones fail with
// ErrNameCollision. The only error returned is the context's.
func (g *TypeScriptGenerator) GenerateAll(ctx context.Context, models []Model) (*BatchResult, error) {
	return g.GenerateAllWithIndex(ctx, models, g.ModelIndex())
}

// GenerateAllWithIndex is GenerateAll with an explicit model index.
func (g *TypeScriptGenerator) GenerateAllWithIndex(ctx context.Context, models []Model, index ModelIndex) (*BatchResult, error) {
	results := make([]*GeneratedInterface, len(models))
	errs := make([]error, len(models))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for i := range models {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = g.GenerateInterfaceWithIndex(models[i], index)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Interfaces: make([]*GeneratedInterface, 0, len(models)),
	}
	owners := make(map[string]string, 2*len(models))
	for i, gi := range results {
		if errs[i] == nil {
			errs[i] = claimNames(owners, gi)
		}
		if errs[i] != nil {
			g.opts.Logger.WithFields(logrus.Fields{
				"model": models[i].Name,
				"id":    models[i].ID,
			}).WithError(errs[i]).Error("Failed to generate interface")

			batch.Failures = append(batch.Failures, ModelFailure{
				ModelID:   models[i].ID,
				ModelName: models[i].Name,
				Err:       errs[i],
			})
			continue
		}
		batch.Interfaces = append(batch.Interfaces, gi)
	}
	batch.Index = g.GenerateIndexFile(batch.Interfaces)

	g.opts.Logger.WithFields(logrus.Fields{
		"generated": len(batch.Interfaces),
		"failed":    len(batch.Failures),
	}).Info("Generated TypeScript interfaces")

	return batch, nil
}

// claimNames records the interface and file name of gi, failing when an
// earlier model already owns either of them.
func claimNames(owners map[string]string, gi *GeneratedInterface) error {
	keys := []string{"interface:" + gi.InterfaceName, "file:" + filepath.Base(gi.FilePath)}
	for _, key := range keys {
		if owner, ok := owners[key]; ok {
			return fmt.Errorf("%w: %s and %q map to %s", ErrNameCollision, owner, gi.ModelName, key)
		}
	}
	for _, key := range keys {
		owners[key] = fmt.Sprintf("%q", gi.ModelName)
	}
	return nil
}
