// Package hub - Model repository fetching with a cache-first policy.
//
// The transformer path keeps files in the hub cache layout
// (models--<org>--<name>/snapshots/<revision>/...). The ONNX path keeps a
// plain snapshot directory.
package hub

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	hfhub "github.com/gomlx/go-huggingface/hub"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Repositories of the depth model.
const (
	// TransformerRepo is loaded by the graph backend from the hub cache.
	TransformerRepo = "onnx-community/depth-anything-v2-small"
	// SnapshotRepo is mirrored into the ONNX model directory.
	SnapshotRepo = "onnx-community/depth-anything-v2-small"
)

// ErrNotCached means a cache-only lookup found nothing usable.
var ErrNotCached = errors.New("model not in local cache")

// Fetcher downloads repository files over the network.
type Fetcher interface {
	// Download fetches files into cacheDir and returns their local paths in order.
	Download(ctx context.Context, repoID, cacheDir string, files ...string) ([]string, error)
	// List returns every file name in the repository.
	List(ctx context.Context, repoID string) ([]string, error)
}

// HFFetcher fetches from the Hugging Face hub. Repository handles are
// reused per repository and cache directory, so repository metadata is
// fetched once per snapshot.
type HFFetcher struct {
	// Token authenticates requests when set.
	Token string

	mu    sync.Mutex
	repos map[string]*hfhub.Repo
}

// NewHFFetcher returns a fetcher authenticated with token, which may be empty.
func NewHFFetcher(token string) *HFFetcher {
	return &HFFetcher{Token: token}
}

func (f *HFFetcher) repo(repoID, cacheDir string) *hfhub.Repo {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := repoID + "\x00" + cacheDir
	if repo, ok := f.repos[key]; ok {
		return repo
	}

	repo := hfhub.New(repoID)
	if cacheDir != "" {
		repo = repo.WithCacheDir(cacheDir)
	}
	if f.Token != "" {
		repo = repo.WithAuth(f.Token)
	}
	if f.repos == nil {
		f.repos = map[string]*hfhub.Repo{}
	}
	f.repos[key] = repo
	return repo
}

// Download implements Fetcher.
func (f *HFFetcher) Download(ctx context.Context, repoID, cacheDir string, files ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := f.repo(repoID, cacheDir).DownloadFiles(files...)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s", repoID)
	}
	return paths, nil
}

// List implements Fetcher.
func (f *HFFetcher) List(ctx context.Context, repoID string) ([]string, error) {
	var names []string
	for name, err := range f.repo(repoID, "").IterFileNames() {
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", repoID)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// CacheRepoDir is the directory of a repository inside a hub cache.
func CacheRepoDir(cacheDir, repoID string) string {
	return filepath.Join(cacheDir, "models--"+strings.ReplaceAll(repoID, "/", "--"))
}

// Cached finds files in the hub cache without touching the network.
//
// The revision named by refs/main is preferred; otherwise any snapshot that
// holds every requested file is used.
//
// Arguments:
//   - cacheDir: Root of the hub cache.
//   - repoID: Repository, e.g. "org/name".
//   - files: Repository-relative file names.
//
// Returns:
//   - []string: Local paths in the order of files.
//   - error: ErrNotCached when any file is missing.
func Cached(cacheDir, repoID string, files ...string) ([]string, error) {
	repoDir := CacheRepoDir(cacheDir, repoID)

	var snapshots []string
	if ref, err := os.ReadFile(filepath.Join(repoDir, "refs", "main")); err == nil {
		snapshots = append(snapshots, filepath.Join(repoDir, "snapshots", strings.TrimSpace(string(ref))))
	}
	others, _ := filepath.Glob(filepath.Join(repoDir, "snapshots", "*"))
	sort.Strings(others)
	snapshots = append(snapshots, others...)

	for _, snapshot := range snapshots {
		if paths, ok := within(snapshot, files); ok {
			return paths, nil
		}
	}
	return nil, errors.Wrapf(ErrNotCached, "%s under %s", repoID, cacheDir)
}

func within(dir string, files []string) ([]string, bool) {
	paths := make([]string, 0, len(files))
	for _, name := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || info.Size() == 0 {
			return nil, false
		}
		paths = append(paths, p)
	}
	return paths, true
}

// Resolve returns local paths for files, trying the cache first and the
// network second. Only a failure of both is an error.
//
// Arguments:
//   - ctx: Cancels the network fetch.
//   - logger: Records which path was taken.
//   - fetcher: Network source; nil disables the fallback.
//   - cacheDir: Root of the hub cache.
//   - repoID: Repository to load.
//   - files: Repository-relative file names.
//
// Returns:
//   - []string: Local paths in the order of files.
//   - error: If neither the cache nor the network provides the files.
func Resolve(ctx context.Context, logger *zap.Logger, fetcher Fetcher, cacheDir, repoID string, files ...string) ([]string, error) {
	paths, cacheErr := Cached(cacheDir, repoID, files...)
	if cacheErr == nil {
		logger.Info("loaded model from local cache", zap.String("repo", repoID), zap.String("cache", cacheDir))
		return paths, nil
	}
	logger.Info("model not cached, downloading", zap.String("repo", repoID), zap.Error(cacheErr))

	if fetcher == nil {
		return nil, cacheErr
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating model cache")
	}

	paths, err := fetcher.Download(ctx, repoID, cacheDir, files...)
	if err != nil {
		return nil, errors.Wrapf(err, "model unavailable from cache and network (cache: %v)", cacheErr)
	}
	logger.Info("downloaded model", zap.String("repo", repoID), zap.String("cache", cacheDir))
	return paths, nil
}

// StagingPrefix names the temporary hub cache a snapshot downloads through.
const StagingPrefix = ".cache-"

// SnapshotProgress is called after each file of a snapshot is in place.
type SnapshotProgress func(done, total int, name string)

// Snapshot mirrors a complete repository into localDir with the repository
// layout and no symlinks. Files are staged through a temporary hub cache
// under localDir that is removed before returning.
//
// Arguments:
//   - ctx: Cancels between files.
//   - fetcher: Network source.
//   - repoID: Repository to mirror.
//   - localDir: Destination directory.
//   - progress: Optional per-file callback.
//
// Returns:
//   - []string: Repository-relative names written, sorted.
//   - error: On the first failed file.
func Snapshot(ctx context.Context, fetcher Fetcher, repoID, localDir string, progress SnapshotProgress) ([]string, error) {
	names, err := fetcher.List(ctx, repoID)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating snapshot directory")
	}
	staging, err := os.MkdirTemp(localDir, StagingPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "creating staging cache")
	}
	defer os.RemoveAll(staging)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		paths, err := fetcher.Download(ctx, repoID, staging, name)
		if err != nil {
			return nil, err
		}
		if len(paths) != 1 {
			return nil, errors.Errorf("download of %s returned %d paths", name, len(paths))
		}
		if err := copyFile(paths[0], filepath.Join(localDir, filepath.FromSlash(name))); err != nil {
			return nil, errors.Wrapf(err, "placing %s", name)
		}
		if progress != nil {
			progress(i+1, len(names), name)
		}
	}
	return names, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// ManifestEntry is one file of a local model directory.
type ManifestEntry struct {
	// Path is relative to the directory.
	Path string `json:"path"`
	// Size in bytes.
	Size int64 `json:"size"`
}

// SizeMB is the size in mebibytes.
func (e ManifestEntry) SizeMB() float64 {
	return float64(e.Size) / (1024 * 1024)
}

// Manifest lists every regular file under dir, skipping the staging cache.
func Manifest(dir string) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), StagingPrefix) && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, ManifestEntry{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}
	return entries, nil
}
