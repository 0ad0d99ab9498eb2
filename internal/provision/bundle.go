package provision

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// PackagingError marks a failure while building the deployment
// package: unresolved dependencies, missing source, archive trouble.
type PackagingError struct {
	Op  string
	Err error
}

func (e *PackagingError) Error() string { return "packaging: " + e.Op + ": " + e.Err.Error() }
func (e *PackagingError) Unwrap() error { return e.Err }

// Bundler builds the deployment archive: the handler cross-compiled
// for the Lambda target plus the non-secret runtime configuration
// file. The staging directory and archive are ephemeral; Cleanup
// removes them on every exit path, success or abort.
type Bundler struct {
	// HandlerDir is the handler's main package directory.
	HandlerDir string
	// RuntimeConfig, when non-empty, is written into the package as
	// runtime.yaml. Secrets must never appear here.
	RuntimeConfig []byte
	// BuildFunc compiles the handler into outPath. Defaults to a
	// linux/arm64 go build; tests substitute a stub.
	BuildFunc func(ctx context.Context, handlerDir, outPath string) error

	stagingDir string
	zipPath    string
}

// Build stages, compiles, and archives the deployment package,
// returning the archive path. Any failure is a PackagingError and no
// upload must follow one.
func (b *Bundler) Build(ctx context.Context) (string, error) {
	if _, err := os.Stat(b.HandlerDir); err != nil {
		return "", &PackagingError{Op: "locate handler source", Err: err}
	}
	dir, err := os.MkdirTemp("", "quotestash-staging-")
	if err != nil {
		return "", &PackagingError{Op: "create staging dir", Err: err}
	}
	b.stagingDir = dir

	build := b.BuildFunc
	if build == nil {
		build = buildBootstrap
	}
	if err := build(ctx, b.HandlerDir, filepath.Join(dir, "bootstrap")); err != nil {
		return "", &PackagingError{Op: "resolve dependencies and compile handler", Err: err}
	}

	if len(b.RuntimeConfig) > 0 {
		if err := os.WriteFile(filepath.Join(dir, "runtime.yaml"), b.RuntimeConfig, 0o644); err != nil {
			return "", &PackagingError{Op: "write runtime config", Err: err}
		}
	}

	b.zipPath = dir + ".zip"
	if err := zipDir(dir, b.zipPath); err != nil {
		return "", &PackagingError{Op: "archive staging dir", Err: err}
	}
	return b.zipPath, nil
}

// Cleanup removes the staging directory and archive. Safe to call
// whether or not Build succeeded, and more than once.
func (b *Bundler) Cleanup() {
	if b.stagingDir != "" {
		os.RemoveAll(b.stagingDir)
	}
	if b.zipPath != "" {
		os.Remove(b.zipPath)
	}
}

// buildBootstrap cross-compiles the handler for the provided.al2023
// arm64 runtime. go build resolves the dependency closure; a missing
// module or source file surfaces here.
func buildBootstrap(ctx context.Context, handlerDir, outPath string) error {
	cmd := exec.CommandContext(ctx, "go", "build", "-tags", "lambda.norpc", "-o", outPath, handlerDir)
	cmd.Env = append(os.Environ(), "GOOS=linux", "GOARCH=arm64", "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go build %s: %w: %s", handlerDir, err, out)
	}
	return nil
}

func zipDir(dir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		// The runtime requires the bootstrap binary to be executable.
		if hdr.Name == "bootstrap" {
			hdr.SetMode(info.Mode() | 0o111)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
