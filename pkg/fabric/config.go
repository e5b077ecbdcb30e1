package fabric

import (
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/common/validation"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

const (
	// DefaultStackSize is the per-task stack budget used when Config.StackSize is zero.
	DefaultStackSize = 64 << 10

	// MinStackSize is the smallest accepted stack budget. It matches the
	// initial goroutine stack of the Go runtime.
	MinStackSize = 2 << 10

	// DefaultCarrierCacheSize is the number of idle carriers each worker keeps.
	DefaultCarrierCacheSize = 64
)

// Config holds configuration options for creating a Fabric.
type Config struct {
	// Name labels log lines and metrics. Defaults to "fabric-" plus a short
	// random suffix.
	Name string

	// WorkerCount is the number of workers. Zero means runtime.GOMAXPROCS(0).
	WorkerCount int

	// StackSize is the per-task stack budget in bytes. Task stacks are
	// goroutine stacks managed by the Go runtime, so this is advisory: it is
	// validated, reported in Stats and used to size the carrier cache.
	StackSize int

	// CarrierCacheSize bounds the idle carriers each worker keeps for reuse.
	// Zero means DefaultCarrierCacheSize.
	CarrierCacheSize int

	// Logger receives lifecycle and panic reports. Nil disables logging.
	Logger *zap.Logger

	// Metrics receives Prometheus updates. Nil disables metrics.
	Metrics *metrics.Registry

	// PanicHandler is called when a task body panics with anything other
	// than a misuse fault. Misuse faults are never recovered.
	PanicHandler func(taskID uint64, recovered interface{})

	// ErrorHandler is called when a task body returns a non-nil error.
	ErrorHandler func(taskID uint64, err error)

	// OnWorkerStart is called on the worker goroutine before its loop starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called on the worker goroutine after its loop exits.
	OnWorkerStop func(workerID int)
}

// DefaultConfig returns a configuration sized to the current GOMAXPROCS.
func DefaultConfig() Config {
	return Config{
		WorkerCount:      runtime.GOMAXPROCS(0),
		StackSize:        DefaultStackSize,
		CarrierCacheSize: DefaultCarrierCacheSize,
	}
}

// withDefaults fills zero values and validates the result.
func (c Config) withDefaults() (Config, error) {
	if c.Name == "" {
		c.Name = "fabric-" + uuid.NewString()[:8]
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = runtime.GOMAXPROCS(0)
	}
	if c.StackSize == 0 {
		c.StackSize = DefaultStackSize
	}
	if c.CarrierCacheSize == 0 {
		c.CarrierCacheSize = DefaultCarrierCacheSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if err := validation.ValidatePositive("fabric", "WorkerCount", c.WorkerCount); err != nil {
		return c, err
	}
	if c.StackSize < MinStackSize {
		return c, gferrors.NewValidationError("fabric", "StackSize", c.StackSize, "below minimum stack size").
			WithHint("use at least 2048 bytes")
	}
	if err := validation.ValidatePositive("fabric", "CarrierCacheSize", c.CarrierCacheSize); err != nil {
		return c, err
	}
	return c, nil
}
