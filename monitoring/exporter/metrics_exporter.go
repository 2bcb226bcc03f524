package main

import (
	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/logging"
	"eepromkv/pkg/primitives"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MetricsCollector owns the store and serialises every access to it; the
// store itself takes no locks.
type MetricsCollector struct {
	store          *eeprom.Store
	wear           device.WearReporter
	writeCount     int64
	writeDurations []time.Duration
	errorCount     int64
	lastWriteTime  time.Time
	mu             sync.Mutex
}

func NewMetricsCollector(store *eeprom.Store, wear device.WearReporter) *MetricsCollector {
	return &MetricsCollector{
		store:          store,
		wear:           wear,
		writeDurations: make([]time.Duration, 0),
		lastWriteTime:  time.Now(),
	}
}

// Write stores value through the collector so the write is counted.
func (mc *MetricsCollector) Write(id primitives.VariableID, value uint32) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	start := time.Now()
	err := mc.store.Write(id, value)
	mc.recordWrite(time.Since(start), err)
	return err
}

func (mc *MetricsCollector) recordWrite(duration time.Duration, err error) {
	mc.writeCount++
	mc.writeDurations = append(mc.writeDurations, duration)
	mc.lastWriteTime = time.Now()

	// Keep only last 1000 durations to avoid memory issues
	if len(mc.writeDurations) > 1000 {
		mc.writeDurations = mc.writeDurations[len(mc.writeDurations)-1000:]
	}

	if err != nil {
		mc.errorCount++
		logging.Error("write failed", "error", err)
	}
}

func (mc *MetricsCollector) GetMetrics() string {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var totalDuration time.Duration
	for _, d := range mc.writeDurations {
		totalDuration += d
	}

	avgDuration := float64(0)
	if len(mc.writeDurations) > 0 {
		avgDuration = float64(totalDuration.Microseconds()) / float64(len(mc.writeDurations))
	}

	stats := mc.store.Stats()
	up := 1
	pages, err := mc.store.Snapshot()
	if err != nil {
		up = 0
		logging.Warn("snapshot failed", "error", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# HELP eepromkv_writes_total Total number of variable writes
# TYPE eepromkv_writes_total counter
eepromkv_writes_total %d

# HELP eepromkv_write_errors_total Total number of failed writes
# TYPE eepromkv_write_errors_total counter
eepromkv_write_errors_total %d

# HELP eepromkv_write_duration_microseconds Average write duration in microseconds
# TYPE eepromkv_write_duration_microseconds gauge
eepromkv_write_duration_microseconds %.2f

# HELP eepromkv_appends_total Records appended, including transfer copies
# TYPE eepromkv_appends_total counter
eepromkv_appends_total %d

# HELP eepromkv_transfers_total Page transfers performed
# TYPE eepromkv_transfers_total counter
eepromkv_transfers_total %d

# HELP eepromkv_formats_total Formats performed
# TYPE eepromkv_formats_total counter
eepromkv_formats_total %d

# HELP eepromkv_last_write_timestamp_seconds Unix timestamp of last write
# TYPE eepromkv_last_write_timestamp_seconds gauge
eepromkv_last_write_timestamp_seconds %d

`,
		mc.writeCount,
		mc.errorCount,
		avgDuration,
		stats.Appends,
		stats.Transfers,
		stats.Formats,
		mc.lastWriteTime.Unix(),
	)

	b.WriteString("# HELP eepromkv_page_erases_total Erases per page since the exporter started\n")
	b.WriteString("# TYPE eepromkv_page_erases_total counter\n")
	for i, n := range mc.wear.EraseCounts() {
		fmt.Fprintf(&b, "eepromkv_page_erases_total{page=\"%d\"} %d\n", i, n)
	}

	if err == nil {
		b.WriteString("\n# HELP eepromkv_page_free_slots Unprogrammed record slots per page\n")
		b.WriteString("# TYPE eepromkv_page_free_slots gauge\n")
		for _, p := range pages {
			fmt.Fprintf(&b, "eepromkv_page_free_slots{page=\"%d\"} %d\n", p.Index, p.Free())
		}

		b.WriteString("\n# HELP eepromkv_page_active Page marker is ACTIVE (1) or not (0)\n")
		b.WriteString("# TYPE eepromkv_page_active gauge\n")
		for _, p := range pages {
			active := 0
			if p.State == eeprom.StateActive {
				active = 1
			}
			fmt.Fprintf(&b, "eepromkv_page_active{page=\"%d\"} %d\n", p.Index, active)
		}
	}

	fmt.Fprintf(&b, `
# HELP eepromkv_up Store readable (1 = up, 0 = down)
# TYPE eepromkv_up gauge
eepromkv_up %d
`, up)

	return b.String()
}

// StartSimulation writes an incrementing counter to every schema variable
// each interval, which drives the store through regular page transfers.
func (mc *MetricsCollector) StartSimulation(interval time.Duration) {
	go func() {
		ids := mc.store.Schema().IDs()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var counter uint32
		for range ticker.C {
			for _, id := range ids {
				counter++
				_ = mc.Write(id, counter)
			}
		}
	}()
}

func main() {
	imagePath := filepath.Clean(os.Getenv("IMAGE_PATH"))
	if imagePath == "." {
		imagePath = "/app/data/eeprom.img"
	}

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "8080"
	}

	if err := logging.Init(logging.Config{
		Level:  logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: "json",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	logging.Info("starting eepromkv metrics exporter", "image", imagePath, "port", metricsPort)

	image := primitives.Filepath(imagePath)
	if err := image.MkdirAll(0o750); err != nil {
		logging.Error("failed to create image directory", "error", err)
		os.Exit(1)
	}

	cfg := eeprom.DefaultConfig()
	region, err := cfg.Geometry.Region()
	if err != nil {
		logging.Error("invalid geometry", "error", err)
		os.Exit(1)
	}

	dev, err := device.OpenFileFlash(image, region)
	if err != nil {
		logging.Error("failed to open image", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	store, err := eeprom.New(dev, cfg)
	if err != nil {
		logging.Error("failed to build store", "error", err)
		os.Exit(1)
	}
	if err := store.Init(); err != nil {
		logging.Error("recovery failed", "error", err)
		os.Exit(1)
	}
	logging.Info("store ready", "recovery", store.Stats().LastRecovery)

	collector := NewMetricsCollector(store, dev)

	if os.Getenv("SIMULATE") != "" {
		logging.Info("simulation writer enabled")
		collector.StartSimulation(5 * time.Second)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, collector.GetMetrics())
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	srv := &http.Server{
		Addr:         ":" + metricsPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logging.Info("metrics available", "url", "http://localhost:"+metricsPort+"/metrics")
	if err := srv.ListenAndServe(); err != nil {
		logging.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
