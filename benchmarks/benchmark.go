package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/primitives"
)

// BenchmarkResult captures performance and wear metrics for a single workload.
type BenchmarkResult struct {
	Workload         string        `json:"workload"`           // Descriptive name of the workload
	Iterations       int           `json:"iterations"`         // Number of writes issued
	Writers          int           `json:"writers"`            // Goroutines sharing the store
	TotalDuration    time.Duration `json:"total_duration_ns"`  // Wall time for all writes
	AvgDuration      time.Duration `json:"avg_duration_ns"`    // Average time per write
	MinDuration      time.Duration `json:"min_duration_ns"`    // Fastest write
	MaxDuration      time.Duration `json:"max_duration_ns"`    // Slowest write (a transfer)
	MedianDuration   time.Duration `json:"median_duration_ns"` // Median write time
	P95Duration      time.Duration `json:"p95_duration_ns"`    // 95th percentile write time
	P99Duration      time.Duration `json:"p99_duration_ns"`    // 99th percentile write time
	WritesPerSecond  float64       `json:"writes_per_second"`  // Throughput
	Transfers        uint64        `json:"transfers"`          // Page transfers triggered
	EraseCounts      []uint64      `json:"erase_counts"`       // Erases per page
	WritesPerErase   float64       `json:"writes_per_erase"`   // Wear efficiency
	SuccessCount     int           `json:"success_count"`      // Writes that succeeded
	ErrorCount       int           `json:"error_count"`        // Writes that failed
	ErrorSamples     []string      `json:"error_samples"`      // Sample error messages
	VerifiedReadback bool          `json:"verified_readback"`  // Final values matched the last writes
	Timestamp        time.Time     `json:"timestamp"`          // When the workload ran
}

// BenchmarkReport aggregates the results of all workloads.
type BenchmarkReport struct {
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	TotalDuration time.Duration     `json:"total_duration"`
	PageSize      uint32            `json:"page_size"`
	Capacity      int               `json:"capacity"`
	Results       []BenchmarkResult `json:"results"`
}

// workload picks the variable written by the i-th iteration.
type workload struct {
	name    string
	schema  eeprom.Schema
	pick    func(i int, rng *rand.Rand, ids []primitives.VariableID) primitives.VariableID
	writers int
}

// main runs every workload against a fresh simulated flash and writes a
// JSON report.
//
// Environment variables:
//   - BENCHMARK_OUTPUT: Directory for output reports (default: ./benchmark-results)
//   - BENCHMARK_ITERATIONS: Writes per workload (default: 20000)
//   - BENCHMARK_WRITERS: Goroutines for the shared-store workload (default: 4)
func main() {
	outputDir := filepath.Clean(os.Getenv("BENCHMARK_OUTPUT"))
	if outputDir == "." {
		outputDir = "./benchmark-results"
	}

	iterations := 20000
	if iter := os.Getenv("BENCHMARK_ITERATIONS"); iter != "" {
		_, _ = fmt.Sscanf(iter, "%d", &iterations)
	}

	writers := 4
	if w := os.Getenv("BENCHMARK_WRITERS"); w != "" {
		_, _ = fmt.Sscanf(w, "%d", &writers)
	}

	_ = os.MkdirAll(outputDir, 0o750) // #nosec G703

	cfg := eeprom.DefaultConfig()
	wide := eeprom.NewSchema(0x100, 0x101, 0x102, 0x103, 0x104, 0x105, 0x106, 0x107)

	workloads := []workload{
		{
			name:   "single variable",
			schema: cfg.Schema,
			pick: func(_ int, _ *rand.Rand, ids []primitives.VariableID) primitives.VariableID {
				return ids[0]
			},
			writers: 1,
		},
		{
			name:   "round robin",
			schema: cfg.Schema,
			pick: func(i int, _ *rand.Rand, ids []primitives.VariableID) primitives.VariableID {
				return ids[i%len(ids)]
			},
			writers: 1,
		},
		{
			name:   "random over eight variables",
			schema: wide,
			pick: func(_ int, rng *rand.Rand, ids []primitives.VariableID) primitives.VariableID {
				return ids[rng.Intn(len(ids))]
			},
			writers: 1,
		},
		{
			name:   "shared store",
			schema: wide,
			pick: func(i int, _ *rand.Rand, ids []primitives.VariableID) primitives.VariableID {
				return ids[i%len(ids)]
			},
			writers: writers,
		},
	}

	log.Printf("Starting benchmark suite...")
	log.Printf("Iterations: %d, Page size: %d, Capacity: %d records", iterations, cfg.Geometry.PageSize, cfg.Geometry.Capacity())

	report := BenchmarkReport{
		StartTime: time.Now(),
		PageSize:  cfg.Geometry.PageSize,
		Capacity:  cfg.Geometry.Capacity(),
	}

	for _, wl := range workloads {
		log.Printf("%s", "\n"+strings.Repeat("=", 80))
		log.Printf("WORKLOAD: %s (%d writer(s))", wl.name, wl.writers)
		log.Printf("%s", strings.Repeat("=", 80))

		result, err := runWorkload(cfg.Geometry, wl, iterations)
		if err != nil {
			log.Fatalf("Workload %q failed to start: %v", wl.name, err)
		}
		printBenchmarkResult(result)
		report.Results = append(report.Results, result)
	}

	report.EndTime = time.Now()
	report.TotalDuration = report.EndTime.Sub(report.StartTime)

	timestamp := report.StartTime.Format("20060102-150405")
	saveJSONReport(report, filepath.Join(outputDir, fmt.Sprintf("benchmark-%s.json", timestamp)))
}

func runWorkload(geo eeprom.Geometry, wl workload, iterations int) (BenchmarkResult, error) {
	region, err := geo.Region()
	if err != nil {
		return BenchmarkResult{}, err
	}
	flash, err := device.NewFlash(region)
	if err != nil {
		return BenchmarkResult{}, err
	}

	store, err := eeprom.New(flash, eeprom.Config{Geometry: geo, Schema: wl.schema})
	if err != nil {
		return BenchmarkResult{}, err
	}
	if err := store.Init(); err != nil {
		return BenchmarkResult{}, err
	}

	ids := wl.schema.IDs()
	durations := make([]time.Duration, 0, iterations)
	expected := make(map[primitives.VariableID]uint32)
	errorSamples := make([]string, 0, 5)
	successCount, errorCount := 0, 0

	// The store is single-caller; writers share it through this mutex.
	var storeMu sync.Mutex
	var mu sync.Mutex
	var wg sync.WaitGroup

	next := make(chan int)
	startTime := time.Now()

	for w := 0; w < wl.writers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := range next {
				id := wl.pick(i, rng, ids)
				value := uint32(i)

				storeMu.Lock()
				writeStart := time.Now()
				err := store.Write(id, value)
				duration := time.Since(writeStart)
				if err == nil {
					expected[id] = value
				}
				storeMu.Unlock()

				mu.Lock()
				durations = append(durations, duration)
				if err != nil {
					errorCount++
					if len(errorSamples) < 5 {
						errorSamples = append(errorSamples, err.Error())
					}
				} else {
					successCount++
				}
				mu.Unlock()
			}
		}(int64(w + 1))
	}

	for i := 0; i < iterations; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
	totalDuration := time.Since(startTime)

	verified := true
	for id, want := range expected {
		got, err := store.Read(id)
		if err != nil || got != want {
			verified = false
			break
		}
	}

	slices.Sort(durations)

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	erases := flash.EraseCounts()
	var totalErases uint64
	for _, e := range erases {
		totalErases += e
	}
	writesPerErase := 0.0
	if totalErases > 0 {
		writesPerErase = float64(successCount) / float64(totalErases)
	}

	return BenchmarkResult{
		Workload:         wl.name,
		Iterations:       iterations,
		Writers:          wl.writers,
		TotalDuration:    totalDuration,
		AvgDuration:      sum / time.Duration(len(durations)),
		MinDuration:      durations[0],
		MaxDuration:      durations[len(durations)-1],
		MedianDuration:   durations[len(durations)/2],
		P95Duration:      durations[int(float64(len(durations))*0.95)],
		P99Duration:      durations[int(float64(len(durations))*0.99)],
		WritesPerSecond:  float64(iterations) / totalDuration.Seconds(),
		Transfers:        store.Stats().Transfers,
		EraseCounts:      erases,
		WritesPerErase:   writesPerErase,
		SuccessCount:     successCount,
		ErrorCount:       errorCount,
		ErrorSamples:     errorSamples,
		VerifiedReadback: verified,
		Timestamp:        time.Now(),
	}, nil
}

// formatDuration formats a duration in a human-readable way with appropriate units.
// Examples: 1.23ms, 456.78µs, 12.34s
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func printBenchmarkResult(result BenchmarkResult) {
	successRate := float64(result.SuccessCount) / float64(result.Iterations) * 100

	log.Printf("  ┌─ Results")
	log.Printf("  │  Total Time:        %s", formatDuration(result.TotalDuration))
	log.Printf("  │  Avg per Write:     %s", formatDuration(result.AvgDuration))
	log.Printf("  │  Min / Max:         %s / %s", formatDuration(result.MinDuration), formatDuration(result.MaxDuration))
	log.Printf("  │  Median (P50):      %s", formatDuration(result.MedianDuration))
	log.Printf("  │  P95 / P99:         %s / %s", formatDuration(result.P95Duration), formatDuration(result.P99Duration))
	log.Printf("  │  Throughput:        %.0f writes/sec", result.WritesPerSecond)
	log.Printf("  │  Transfers:         %d", result.Transfers)
	log.Printf("  │  Erases per page:   %v (%.1f writes/erase)", result.EraseCounts, result.WritesPerErase)
	log.Printf("  │  Success Rate:      %.1f%% (%d/%d)", successRate, result.SuccessCount, result.Iterations)
	log.Printf("  │  Readback:          %t", result.VerifiedReadback)

	if result.ErrorCount > 0 {
		log.Printf("  │  ⚠ %d failures, first: %s", result.ErrorCount, result.ErrorSamples[0])
	}

	log.Printf("  └─")
}

// saveJSONReport serializes the benchmark report to a JSON file.
func saveJSONReport(report BenchmarkReport, filename string) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("Error marshaling report: %v", err)
		return
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil { // #nosec G703
		log.Printf("Error writing JSON report: %v", err)
		return
	}

	log.Printf("JSON report saved: %s", filename)
}
