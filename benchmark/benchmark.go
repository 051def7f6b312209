package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/go-depth/depth"
	"github.com/nvr-ai/go-depth/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoScenarios is returned when a run has nothing to execute.
var ErrNoScenarios = errors.New("no benchmark scenarios configured")

// Suite runs scenarios against one depth estimator and keeps the results.
type Suite struct {
	estimator depth.Estimator
	outputDir string
	logger    *zap.Logger
	sources   []image.Image
	scenarios []Scenario
	results   []PerformanceMetrics
	mu        sync.RWMutex
}

// NewSuiteArgs represents the arguments for creating a new suite.
type NewSuiteArgs struct {
	// Estimator is the estimator under test. The suite does not close it.
	Estimator depth.Estimator
	// OutputDir receives the JSON and CSV reports.
	OutputDir string
	// Logger receives per-scenario progress.
	Logger *zap.Logger
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - args: The arguments for the suite.
//
// Returns:
//   - *Suite: The suite.
//   - error: If no estimator is given.
func NewSuite(args NewSuiteArgs) (*Suite, error) {
	if args.Estimator == nil {
		return nil, errors.New("benchmark suite requires an estimator")
	}
	if args.Logger == nil {
		args.Logger = zap.NewNop()
	}
	return &Suite{
		estimator: args.Estimator,
		outputDir: args.OutputDir,
		logger:    args.Logger,
	}, nil
}

// AddScenario adds a test scenario to the suite.
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// AddSource registers a decoded image used to build scenario frames. Without
// sources each scenario encodes a synthetic gradient.
func (s *Suite) AddSource(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, img)
}

// Frames encodes the JPEG frames for a scenario at its resolution.
func (s *Suite) Frames(scenario Scenario) ([][]byte, error) {
	width, height := scenario.Resolution.Width, scenario.Resolution.Height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scenario %s has invalid resolution %dx%d", scenario.Name, width, height)
	}

	s.mu.RLock()
	sources := append([]image.Image(nil), s.sources...)
	s.mu.RUnlock()
	if len(sources) == 0 {
		sources = []image.Image{Gradient(width, height)}
	}

	quality := scenario.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	frames := make([][]byte, 0, len(sources))
	for _, src := range sources {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, images.Resize(src, width, height), &jpeg.Options{Quality: quality}); err != nil {
			return nil, errors.Wrap(err, "encoding benchmark frame")
		}
		frames = append(frames, buf.Bytes())
	}
	return frames, nil
}

// RunScenario executes a single benchmark scenario.
//
// Warmup errors are ignored. Failed iterations count toward the error rate
// and are excluded from the latency statistics.
//
// Arguments:
//   - ctx: Cancels the scenario between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: The measured metrics.
//   - error: If the frames cannot be built or the context is cancelled.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	frames, err := s.Frames(scenario)
	if err != nil {
		return nil, err
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Backend:   s.estimator.Backend().Label,
		Timestamp: time.Now(),
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, _ = s.estimator.Estimate(frames[i%len(frames)])
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	samples := make([]time.Duration, 0, scenario.Iterations)
	failures := 0
	start := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		began := time.Now()
		out, err := s.estimator.Estimate(frames[i%len(frames)])
		elapsed := time.Since(began)
		if err != nil {
			failures++
			continue
		}
		samples = append(samples, elapsed)

		if metrics.OutputWidth == 0 {
			if w, h, _, err := depth.Unpack(out); err == nil {
				metrics.OutputWidth, metrics.OutputHeight = w, h
			}
		}
	}

	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	if scenario.Iterations > 0 {
		metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	}
	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.FramesPerSecond = float64(len(samples)) / secs
	}
	metrics.Latency = Summarize(samples)

	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	metrics.CPUStats = CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	return metrics, nil
}

// RunAllScenarios executes every configured scenario and saves the results.
// A failing scenario is logged and skipped; cancellation stops the run.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	if len(scenarios) == 0 {
		return ErrNoScenarios
	}

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.logger.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Duration("p95", metrics.Latency.P95),
		)
	}

	if s.outputDir == "" {
		return nil
	}
	_, _, err := s.SaveResults()
	return err
}

// SaveResults persists the results as JSON and a CSV summary.
//
// Returns:
//   - string: The JSON report path.
//   - string: The CSV summary path.
//   - error: If the directory or either file cannot be written.
func (s *Suite) SaveResults() (string, string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "creating output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "marshalling results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "writing results file")
	}

	if err := writeSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "writing summary CSV")
	}

	s.logger.Info("results saved", zap.String("json", resultsFile), zap.String("csv", summaryFile))
	return resultsFile, summaryFile, nil
}

// SummaryHeader is the first row of the CSV summary.
var SummaryHeader = []string{
	"Scenario", "Backend", "Resolution", "Output", "FPS",
	"P50_ms", "P95_ms", "P99_ms", "Total_Duration_ms", "Alloc_MB", "Error_Rate",
}

func writeSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(SummaryHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Scenario.Name,
			r.Backend,
			r.Scenario.Resolution.Name,
			fmt.Sprintf("%dx%d", r.OutputWidth, r.OutputHeight),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			ms(r.Latency.P50),
			ms(r.Latency.P95),
			ms(r.Latency.P99),
			ms(r.TotalDuration),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Nanoseconds())/1e6, 'f', 2, 64)
}

// Results returns a copy of the collected results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// Gradient renders a diagonal grayscale ramp. Its depth map has a full range.
func Gradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	span := width + height - 2
	if span < 1 {
		span = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 255 / span)})
		}
	}
	return img
}
