// Package objectstore is the Cloudflare-R2-equivalent upload contract:
// upload local files out-of-band and get back public URLs. Its one
// implementation, LocalStore, copies files into a local directory for
// dev/tests; no R2/S3-compatible client is included.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UploadRequest names one local file and where it should land.
type UploadRequest struct {
	LocalPath  string
	RemotePath string
}

// UploadResult is one file's outcome.
type UploadResult struct {
	RemotePath string
	URL        string
	Error      string
}

// Store is the narrow object-storage contract every caller depends on.
type Store interface {
	UploadFiles(ctx context.Context, reqs []UploadRequest) (uploaded []UploadResult, failed []UploadResult)
	UploadNavigationScreenshot(ctx context.Context, localPath, userInterfaceName, filename string) (string, error)
}

// LocalStore copies files into a directory served by baseURL,
// standing in for a real object-storage client in dev/test runs.
type LocalStore struct {
	rootDir string
	baseURL string
}

func NewLocalStore(rootDir, baseURL string) *LocalStore {
	return &LocalStore{rootDir: rootDir, baseURL: baseURL}
}

func (s *LocalStore) UploadFiles(ctx context.Context, reqs []UploadRequest) ([]UploadResult, []UploadResult) {
	var uploaded, failed []UploadResult
	for _, r := range reqs {
		url, err := s.copy(r.LocalPath, r.RemotePath)
		if err != nil {
			failed = append(failed, UploadResult{RemotePath: r.RemotePath, Error: err.Error()})
			continue
		}
		uploaded = append(uploaded, UploadResult{RemotePath: r.RemotePath, URL: url})
	}
	return uploaded, failed
}

func (s *LocalStore) UploadNavigationScreenshot(ctx context.Context, localPath, userInterfaceName, filename string) (string, error) {
	remote := filepath.Join("navigation", userInterfaceName, filename)
	return s.copy(localPath, remote)
}

func (s *LocalStore) copy(localPath, remotePath string) (string, error) {
	dst := filepath.Join(s.rootDir, remotePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open local file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create remote file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}

	return s.baseURL + "/" + filepath.ToSlash(remotePath), nil
}
