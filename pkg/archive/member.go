package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"

	"github.com/probitylabs/probity/pkg/errors"
)

// ReadMember returns the content of one member, identified by its
// normalized path. Useful for pulling a single metadata file out of a
// distribution without extracting the rest.
func ReadMember(filename, memberPath string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "open %s", filename)
	}
	defer f.Close()

	kind, err := sniff(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "read %s", filename)
	}

	var data []byte
	switch kind {
	case formatZip:
		data, err = readZipMember(f, memberPath)
	case formatTarGz, formatTarBz2, formatTar:
		data, err = readTarMember(f, kind, memberPath)
	default:
		return nil, errors.New(errors.ErrCodeExtraction, "%s: unrecognized archive format", filename)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "read %s from %s", memberPath, filename)
	}
	return data, nil
}

func readZipMember(f *os.File, memberPath string) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, err
	}
	for _, zf := range zr.File {
		if normalizePath(zf.Name) != memberPath {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no member %q", memberPath)
}

func readTarMember(f *os.File, kind format, memberPath string) ([]byte, error) {
	r, err := decompress(f, kind)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeNotFound, "no member %q", memberPath)
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg && normalizePath(hdr.Name) == memberPath {
			return io.ReadAll(tr)
		}
	}
}
