package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvr-ai/go-depth/images"
	"github.com/pkg/errors"
)

// Resolution represents image dimensions for benchmarking
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// NewResolution names a resolution after its dimensions.
func NewResolution(width, height int) Resolution {
	return Resolution{Width: width, Height: height, Name: fmt.Sprintf("%dx%d", width, height)}
}

// FromCatalog converts cataloged camera resolutions.
func FromCatalog(resolutions ...images.Resolution) []Resolution {
	out := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		out = append(out, Resolution{Width: r.Pixels.Width, Height: r.Pixels.Height, Name: string(r.Name)})
	}
	return out
}

// DefaultTypes are the camera resolutions swept when none are requested.
var DefaultTypes = []images.ResolutionType{
	images.ResolutionTypeVGA,
	images.ResolutionTypeHD720p,
	images.ResolutionTypeFHD1080p,
	images.ResolutionType4KUHD,
}

// DefaultResolutions returns the catalog entries named by DefaultTypes.
func DefaultResolutions() []Resolution {
	resolutions, err := images.GetResolutionsByType(DefaultTypes...)
	if err != nil {
		panic(err)
	}
	return FromCatalog(resolutions...)
}

// SupportedResolutions returns every non-experimental cataloged resolution.
func SupportedResolutions() []Resolution {
	return FromCatalog(images.GetSupportedResolutions()...)
}

// Scenario defines a specific test configuration
type Scenario struct {
	Name       string     `json:"name"`
	Resolution Resolution `json:"resolution"`
	// Quality of the synthetic JPEG frames, 1-100.
	Quality    int `json:"quality"`
	Iterations int `json:"iterations"`
	WarmupRuns int `json:"warmup_runs"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: NewResolution(640, 480),
			Quality:    85,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the frame resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = NewResolution(width, height)
	return sb
}

// WithQuality sets the JPEG quality of synthetic frames
func (sb *ScenarioBuilder) WithQuality(quality int) *ScenarioBuilder {
	sb.scenario.Quality = quality
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ResolutionSweep returns one scenario per resolution.
func ResolutionSweep(iterations, warmups int, resolutions ...Resolution) []Scenario {
	if len(resolutions) == 0 {
		resolutions = DefaultResolutions()
	}
	scenarios := make([]Scenario, 0, len(resolutions))
	for _, r := range resolutions {
		scenario := NewScenarioBuilder(fmt.Sprintf("depth_%dx%d", r.Width, r.Height)).
			WithIterations(iterations).
			WithWarmupRuns(warmups).
			Build()
		scenario.Resolution = r
		scenarios = append(scenarios, scenario)
	}
	return scenarios
}

// LoadScenarios reads a JSON array of scenarios.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenarios")
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return scenarios, nil
}
