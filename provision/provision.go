// Package provision - Downloads the depth models for offline use.
//
// Provisioning runs two independent steps: the transformer model into the
// hub cache and the ONNX model snapshot into its plain directory. A failing
// step never stops the other one.
package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth/graph"
	"github.com/nvr-ai/go-depth/inference"
	"github.com/nvr-ai/go-depth/models/hub"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// ErrDependencyMissing marks a step that was skipped on purpose.
var ErrDependencyMissing = errors.New("optional dependency missing")

// Step is one isolated download target.
type Step struct {
	// Tag prefixes every line the step prints, e.g. "SERVER".
	Tag string
	// Run performs the download and prints to out.
	Run func(ctx context.Context, out io.Writer) error
}

// Result is the outcome of one step.
type Result struct {
	Tag     string
	Skipped bool
	Err     error
}

// Provisioner wires the steps to the configuration.
type Provisioner struct {
	// Config locates the model directories.
	Config config.Config
	// Fetcher defaults to the hub with Config.HFToken.
	Fetcher hub.Fetcher
	// Out receives the report; defaults to stdout.
	Out io.Writer
	// Progress receives the progress bar; defaults to stderr.
	Progress io.Writer
	// Logger records step failures.
	Logger *zap.Logger
	// GraphAvailable reports whether the transformer backend is built in.
	GraphAvailable func() bool
}

// New returns a Provisioner with defaults for cfg.
func New(cfg config.Config, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		Config:         cfg,
		Fetcher:        hub.NewHFFetcher(cfg.HFToken),
		Out:            os.Stdout,
		Progress:       os.Stderr,
		Logger:         logger.Named("PROVISION"),
		GraphAvailable: graph.Available,
	}
}

// ModelsDir is the directory both steps write under.
func (p *Provisioner) ModelsDir() string {
	return filepath.Join(p.Config.Root, "models")
}

// Steps returns the transformer step followed by the snapshot step.
func (p *Provisioner) Steps() []Step {
	return []Step{
		{Tag: "SERVER", Run: p.transformer},
		{Tag: "CLIENT", Run: p.snapshot},
	}
}

// Run executes every step and prints the summary.
//
// Arguments:
//   - ctx: Cancels downloads.
//
// Returns:
//   - int: The process exit code, 0 when no step errored.
func (p *Provisioner) Run(ctx context.Context) int {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.Out, rule)
	fmt.Fprintln(p.Out, "Depth Model Downloader")
	fmt.Fprintln(p.Out, rule)

	results := RunSteps(ctx, p.Out, p.Steps()...)
	ok := true
	for _, r := range results {
		if r.Err != nil {
			p.Logger.Error("provisioning step failed", zap.String("step", r.Tag), zap.Error(r.Err))
			ok = false
		}
	}

	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, rule)
	if ok {
		fmt.Fprintln(p.Out, "All models downloaded successfully!")
		fmt.Fprintf(p.Out, "Models cached in: %s\n", p.ModelsDir())
	} else {
		fmt.Fprintln(p.Out, "Some downloads failed. Check errors above.")
	}
	fmt.Fprintln(p.Out, rule)

	return ExitCode(results)
}

// RunSteps runs every step in order. Errors and panics are isolated to
// their step; ErrDependencyMissing is recorded as a skip.
func RunSteps(ctx context.Context, out io.Writer, steps ...Step) []Result {
	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		err := runStep(ctx, out, step)
		switch {
		case err == nil:
			results = append(results, Result{Tag: step.Tag})
		case errors.Is(err, ErrDependencyMissing):
			results = append(results, Result{Tag: step.Tag, Skipped: true})
		default:
			fmt.Fprintf(out, "[%s] Error: %v\n", step.Tag, err)
			results = append(results, Result{Tag: step.Tag, Err: err})
		}
	}
	return results
}

func runStep(ctx context.Context, out io.Writer, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return step.Run(ctx, out)
}

// ExitCode is 1 when any result carries an error, otherwise 0.
func ExitCode(results []Result) int {
	for _, r := range results {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}

// TransformerFiles are fetched into the hub cache: both precisions so the
// device picked at serve time finds its export.
func TransformerFiles() []string {
	return []string{
		graph.PreprocessorConfigFile,
		graph.ModelFile(inference.PrecisionFP32),
		graph.ModelFile(inference.PrecisionFP16),
	}
}

func (p *Provisioner) transformer(ctx context.Context, out io.Writer) error {
	cacheDir := p.Config.HuggingFaceCacheDir()
	fmt.Fprintf(out, "\n[SERVER] Downloading %s...\n", hub.TransformerRepo)
	fmt.Fprintf(out, "[SERVER] Cache dir: %s\n", cacheDir)

	if p.GraphAvailable != nil && !p.GraphAvailable() {
		fmt.Fprintln(out, "[SERVER] Skipping transformer model (GoMLX backend not built in)")
		fmt.Fprintln(out, "[SERVER] Using ONNX path instead (recommended)")
		return errors.Wrap(ErrDependencyMissing, "GoMLX backend")
	}

	if _, err := hub.Resolve(ctx, p.Logger, p.Fetcher, cacheDir, hub.TransformerRepo, TransformerFiles()...); err != nil {
		return err
	}
	fmt.Fprintf(out, "[SERVER] Downloaded to %s\n", cacheDir)
	return nil
}

func (p *Provisioner) snapshot(ctx context.Context, out io.Writer) error {
	localDir := p.Config.ONNXModelDir()
	fmt.Fprintf(out, "\n[CLIENT] Downloading %s...\n", hub.SnapshotRepo)
	fmt.Fprintf(out, "[CLIENT] Cache dir: %s\n", filepath.Dir(localDir))

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return errors.Wrap(err, "creating model directory")
	}

	progress := p.Progress
	if progress == nil {
		progress = io.Discard
	}
	var bar *progressbar.ProgressBar
	_, err := hub.Snapshot(ctx, p.Fetcher, hub.SnapshotRepo, localDir, func(done, total int, name string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Downloading"),
				progressbar.OptionSetWriter(progress),
				progressbar.OptionShowCount(),
			)
		}
		bar.Describe(name)
		_ = bar.Set(done)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[CLIENT] Downloaded to %s\n", localDir)

	entries, err := hub.Manifest(localDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "[CLIENT] Files:")
	for _, e := range entries {
		fmt.Fprintf(out, "  %s (%.1f MB)\n", e.Path, e.SizeMB())
	}
	return nil
}
