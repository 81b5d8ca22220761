// Package artifact maintains the on-disk store of downloaded
// distribution files. Files are laid out under
// <root>/<name[:2]>/<name[2:4]>/<name>/<filename> so no single directory
// grows unbounded, and every file is digest-verified before it becomes
// visible in the store.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/httputil"
	"github.com/probitylabs/probity/pkg/index"
)

// Store is a content-addressed cache of distribution files. Concurrent
// Materialize calls for the same artifact are coalesced into a single
// download. Safe for concurrent use.
type Store struct {
	root  string
	http  *http.Client
	group singleflight.Group
}

// NewStore opens (creating if needed) an artifact store rooted at dir.
func NewStore(dir string, client *http.Client) (*Store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty store directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create store root")
	}
	if client == nil {
		client = httputil.NewHTTPClient()
	}
	return &Store{root: dir, http: client}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// PackageDir returns the directory holding all files of a package. Short
// names leave an empty shard segment, which is spelled "-" so the depth
// stays uniform.
func (s *Store) PackageDir(name string) string {
	name = index.NormalizeName(name)
	return filepath.Join(s.root, shard(name, 0, 2), shard(name, 2, 4), name)
}

// Path returns where the named artifact lives (or would live) on disk.
func (s *Store) Path(name, filename string) string {
	return filepath.Join(s.PackageDir(name), filename)
}

func shard(name string, lo, hi int) string {
	if len(name) <= lo {
		return "-"
	}
	if len(name) < hi {
		hi = len(name)
	}
	return name[lo:hi]
}

// Materialize ensures the artifact is present and verified in the store
// and returns its path. An already-present file is digest-checked before
// being trusted; a corrupt one is discarded and fetched again. Concurrent
// calls for the same file share one download.
func (s *Store) Materialize(ctx context.Context, name string, a index.Artifact) (string, error) {
	dest := s.Path(name, a.Filename)

	v, err, _ := s.group.Do(dest, func() (any, error) {
		if ok, err := s.verifyExisting(dest, a.SHA256); err != nil {
			return nil, err
		} else if ok {
			return dest, nil
		}
		if err := s.download(ctx, dest, a); err != nil {
			return nil, err
		}
		return dest, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// verifyExisting reports whether dest is already present with the right
// digest. When the index supplied no digest, a sidecar recorded at
// download time stands in; a file with neither is rehashed and given one.
// Corrupt files are removed so the caller refetches.
func (s *Store) verifyExisting(dest, wantSHA256 string) (bool, error) {
	if _, err := os.Stat(dest); err != nil {
		return false, nil
	}
	got, err := fileSHA256(dest)
	if err != nil {
		return false, err
	}

	want := wantSHA256
	if want == "" {
		side, err := os.ReadFile(sidecarPath(dest))
		if os.IsNotExist(err) {
			// Hash-less entry from an older store; adopt the current
			// content as canonical.
			return true, writeSidecar(dest, got)
		}
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeInternal, err, "read digest sidecar")
		}
		want = strings.TrimSpace(string(side))
	}

	if !strings.EqualFold(got, want) {
		os.Remove(dest)
		os.Remove(sidecarPath(dest))
		return false, nil
	}
	return true, nil
}

// download fetches the artifact into a temp file, verifies the digest,
// and only then moves it into place. A digest mismatch never leaves a
// file in the store.
func (s *Store) download(ctx context.Context, dest string, a index.Artifact) error {
	if a.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "artifact %s has no URL", a.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create package dir")
	}

	return httputil.RetryWithBackoff(ctx, func() error {
		tmp := filepath.Join(filepath.Dir(dest), ".tmp-"+uuid.NewString())
		digest, err := s.fetchTo(ctx, tmp, a.URL)
		if err != nil {
			os.Remove(tmp)
			return err
		}
		if a.SHA256 != "" && !strings.EqualFold(digest, a.SHA256) {
			os.Remove(tmp)
			return errors.New(errors.ErrCodeHashMismatch,
				"%s: downloaded sha256 %s does not match index %s", a.Filename, digest, a.SHA256)
		}
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			return errors.Wrap(errors.ErrCodeInternal, err, "commit %s", a.Filename)
		}
		// Record the digest next to the committed file so later Verify
		// passes can rehash without consulting the index again. A failed
		// write is rebuilt by verifyExisting on the next access.
		return writeSidecar(dest, digest)
	})
}

// fetchTo streams url into path, returning the hex sha256 of the bytes
// written.
func (s *Store) fetchTo(ctx context.Context, path, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", httputil.Retryable(errors.Wrap(errors.ErrCodeTransport, err, "fetch %s", url))
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return "", errors.New(errors.ErrCodeNotFound, "%s returned 404", url)
	case resp.StatusCode >= 500:
		return "", httputil.Retryable(errors.New(errors.ErrCodeTransport, "%s returned %d", url, resp.StatusCode))
	default:
		return "", errors.New(errors.ErrCodeTransport, "%s returned %d", url, resp.StatusCode)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create temp file")
	}
	h := sha256.New()
	_, err = io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", httputil.Retryable(errors.Wrap(errors.ErrCodeTransport, err, "download %s", url))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Invalidate removes every stored file of a package.
func (s *Store) Invalidate(name string) error {
	if err := os.RemoveAll(s.PackageDir(name)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "invalidate %s", name)
	}
	return nil
}

// Problem describes one store entry that failed verification.
type Problem struct {
	Path   string
	Reason string
}

// Verify walks the whole store and rehashes every artifact against its
// digest sidecar. Files without a sidecar (hand-copied into the store)
// are skipped.
func (s *Store) Verify(ctx context.Context) ([]Problem, error) {
	var problems []Problem
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, sidecarSuffix) || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		side, err := os.ReadFile(sidecarPath(path))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		got, err := fileSHA256(path)
		if err != nil {
			return err
		}
		if want := strings.TrimSpace(string(side)); !strings.EqualFold(got, want) {
			problems = append(problems, Problem{
				Path:   path,
				Reason: fmt.Sprintf("sha256 %s, recorded %s", got, want),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "verify store")
	}
	return problems, nil
}

const sidecarSuffix = ".sha256"

func sidecarPath(dest string) string { return dest + sidecarSuffix }

func writeSidecar(dest, digest string) error {
	if err := os.WriteFile(sidecarPath(dest), []byte(digest+"\n"), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write digest sidecar")
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
