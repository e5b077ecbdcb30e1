package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	registry := NewRegistry(prometheus.NewRegistry())

	registry.TasksSubmitted.WithLabelValues("render").Add(10)
	registry.TasksCompleted.WithLabelValues("render").Add(8)

	fmt.Println(testutil.ToFloat64(registry.TasksSubmitted.WithLabelValues("render")))
	fmt.Println(testutil.ToFloat64(registry.TasksCompleted.WithLabelValues("render")))

	// Output:
	// 10
	// 8
}

// Example_config demonstrates resolving a registry from Config.
func Example_config() {
	disabled := Config{Enabled: false}
	fmt.Println(disabled.Resolve() == nil)

	custom := Config{Enabled: true, Registry: prometheus.NewRegistry()}
	fmt.Println(custom.Resolve() != DefaultRegistry)

	fmt.Println(DefaultConfig().Resolve() == DefaultRegistry)

	// Output:
	// true
	// true
	// true
}
