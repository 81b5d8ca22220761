package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/probitylabs/probity/pkg/errors"
)

// ExtractTo unpacks the archive at filename under dest, creating dest if
// needed. Member names that would escape dest (absolute paths or ".."
// traversal) fail the extraction rather than being silently skipped;
// symlinks and special members are not recreated.
func ExtractTo(filename, dest string) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "open %s", filename)
	}
	defer f.Close()

	kind, err := sniff(f)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "read %s", filename)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "create %s", dest)
	}

	switch kind {
	case formatZip:
		err = extractZip(f, dest)
	case formatTarGz, formatTarBz2, formatTar:
		err = extractTar(f, kind, dest)
	default:
		return errors.New(errors.ErrCodeExtraction, "%s: unrecognized archive format", filename)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "extract %s", filename)
	}
	return nil
}

// memberDest resolves name under dest, rejecting escapes.
func memberDest(dest, name string) (string, error) {
	name = normalizePath(name)
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", errors.New(errors.ErrCodeExtraction, "member %q escapes extraction root", name)
	}
	return filepath.Join(dest, filepath.FromSlash(name)), nil
}

func extractZip(f *os.File, dest string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}
	for _, zf := range zr.File {
		target, err := memberDest(dest, zf.Name)
		if err != nil {
			return err
		}
		mode := zf.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, mode.Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTar(f *os.File, kind format, dest string) error {
	r, err := decompress(f, kind)
	if err != nil {
		return err
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := memberDest(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
