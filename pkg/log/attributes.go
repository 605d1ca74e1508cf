// Package log defines standard attribute keys for the demo's structured logs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that records from the pipeline, the GP models and the
// HTTP server can be filtered together.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model type.
	// Examples: "SingleTaskGP", "MultiTaskGP"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "posterior", "sample", "render"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "gp", "pipeline", "server"
	ComponentKey = "ml.component"

	// TaskKey identifies the regression task ("auxiliary" or "main").
	TaskKey = "ml.task"
)

// Data Shape
const (
	// SamplesKey indicates the number of training rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of input columns, including the
	// task indicator for multitask inputs.
	FeaturesKey = "data.features"

	// TasksKey indicates the number of output tasks of a model.
	TasksKey = "data.tasks"

	// GridSizeKey is the number of evaluation grid points.
	GridSizeKey = "data.grid_size"
)

// Performance and Optimization
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the optimizer objective (negative log posterior).
	LossKey = "metrics.loss"

	// RMSEKey records a root mean squared error diagnostic.
	RMSEKey = "metrics.rmse"

	// EvaluationsKey records the number of objective evaluations.
	EvaluationsKey = "training.evaluations"

	// IterationKey records the number of optimizer major iterations.
	IterationKey = "training.iteration"

	// StatusKey records the optimizer termination status.
	StatusKey = "training.status"

	// JitterKey records the diagonal jitter added before a Cholesky factorization.
	JitterKey = "numerics.jitter"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// HyperParamsKey contains fitted kernel hyperparameters.
	HyperParamsKey = "model.hyperparams"
)

// HTTP
const (
	// MethodKey is the HTTP request method.
	MethodKey = "http.method"

	// PathKey is the HTTP request path including the query string.
	PathKey = "http.path"

	// StatusCodeKey is the HTTP response status.
	StatusCodeKey = "http.status"

	// SizeKey is the HTTP response size in bytes.
	SizeKey = "http.size"
)

// Error Context
const (
	// ErrorKey holds the error message.
	ErrorKey = "error"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// ErrorDetailKey holds the structured fields of typed errors.
	ErrorDetailKey = "error.detail"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPosterior = "posterior"
	OperationSample    = "sample"
	OperationNormalize = "normalize"
	OperationGenerate  = "generate"
	OperationRender    = "render"
)
