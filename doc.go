// Package mtgp is an interactive demo of multitask Gaussian processes, a key
// component of multitask Bayesian optimization.
//
// Two synthetic tasks share a quadratic trend: the main task
// 1.5·cos²(period·x) + 5x² and the auxiliary task cos²(5x) + 3(x−0.2)².
// Moving the period slider changes how much they resemble each other. A single-task
// GP is fitted to the main-task observations alone, and an intrinsic
// coregionalization (ICM) multitask GP is fitted to both tasks together.
// Posterior samples of both are drawn on a grid in [0, 1] and rendered side
// by side, so the benefit of borrowing strength from the auxiliary task is
// visible when main-task data is scarce.
//
// # Quick Start
//
// Run the server and open http://localhost:8501:
//
//	go run ./cmd/mtgp-demo --log-format console
//
// Or compute a single figure programmatically:
//
//	res, err := pipeline.Run(ctx, pipeline.DefaultParams(), pipeline.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png, err := render.PNGBytes(res, render.DownloadDPI)
//
// # Packages
//
//   - dataset: Task functions and seeded observation generation
//   - preprocessing: Target normalization (Stats)
//   - gp: Matérn-5/2 kernels, SingleTaskGP, MultiTaskGP and posteriors
//   - pipeline: One end-to-end recomputation from slider values to curves
//   - render: Two-panel figure as PNG, SVG or PDF
//   - server: HTTP page, figure and download endpoints
//   - metrics: Regression metrics used for the diagnostics table
//   - core/model: Model interfaces and fitted-state bookkeeping
//   - core/parallel: Row-parallel loops for covariance assembly
//   - pkg/errors, pkg/log: Typed errors and structured logging
//
// # Reproducibility
//
// Every request regenerates data from the same seed (100 by default), so
// identical slider values always produce identical figures, and the
// downloaded PNG matches the one on the page.
package mtgp
