package backends

import (
	"context"
	"fmt"
	"io"

	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/style"
)

// bulkOp is the install flow shared by every adapter: skip what the
// cache says is installed, print the batch in dry-run mode, attempt
// one batched invocation, and on batch failure retry per package so
// failures are attributed to the right entry.
type bulkOp struct {
	backend  manifest.BackendID
	out      io.Writer
	describe func(ids []string) string
	batch    func(ctx context.Context, ids []string) error
	single   func(ctx context.Context, id string) error
}

func (op bulkOp) run(ctx context.Context, c *cache.Cache, src cache.Source, reqs []Request, dryRun bool) []Result {
	logger := logging.GetLogger(string(op.backend))

	var results []Result
	var pending []Request

	for _, req := range reqs {
		if c.IsInstalled(ctx, src, req.Identifier) {
			fmt.Fprintln(op.out, style.Info(fmt.Sprintf("%s (%s) already installed", req.Package, req.Identifier)))
			results = append(results, Result{
				Package:    req.Package,
				Identifier: req.Identifier,
				Status:     StatusAlready,
			})
			continue
		}
		pending = append(pending, req)
	}

	if len(pending) == 0 {
		return results
	}

	ids := make([]string, len(pending))
	for i, req := range pending {
		ids[i] = req.Identifier
	}

	if dryRun {
		fmt.Fprintln(op.out, style.DryRun(op.describe(ids)))
		for _, req := range pending {
			results = append(results, Result{
				Package:    req.Package,
				Identifier: req.Identifier,
				Status:     StatusDryRun,
			})
		}
		return results
	}

	fmt.Fprintln(op.out, style.Info(fmt.Sprintf("%s: installing %d package(s)", op.backend, len(pending))))

	// A single pending package goes straight to the per-package path;
	// batching it would just run the same command twice on failure.
	if len(pending) > 1 {
		installCtx, cancel := context.WithTimeout(ctx, InstallTimeout)
		batchErr := op.batch(installCtx, ids)
		cancel()

		if batchErr == nil {
			for _, req := range pending {
				fmt.Fprintln(op.out, style.Success(fmt.Sprintf("%s (%s) installed", req.Package, req.Identifier)))
				results = append(results, Result{
					Package:    req.Package,
					Identifier: req.Identifier,
					Status:     StatusInstalled,
				})
			}
			return results
		}
		logger.Warn().Err(batchErr).
			Int("batch", len(pending)).
			Msg("Batched install failed, retrying packages individually")
	}

	for _, req := range pending {
		singleCtx, cancelOne := context.WithTimeout(ctx, InstallTimeout)
		err := op.single(singleCtx, req.Identifier)
		cancelOne()

		if err != nil {
			fmt.Fprintln(op.out, style.ErrorLine(fmt.Sprintf("%s (%s) failed: %v", req.Package, req.Identifier, err)))
			results = append(results, Result{
				Package:    req.Package,
				Identifier: req.Identifier,
				Status:     StatusFailed,
				Reason:     err.Error(),
			})
			continue
		}
		fmt.Fprintln(op.out, style.Success(fmt.Sprintf("%s (%s) installed", req.Package, req.Identifier)))
		results = append(results, Result{
			Package:    req.Package,
			Identifier: req.Identifier,
			Status:     StatusInstalled,
		})
	}
	return results
}
