// Package archive inspects distribution archives without unpacking them.
// It reads zip (also .whl and .egg), tar, tar.gz, and tar.bz2 containers,
// detected by content rather than filename, and computes per-member
// digests while streaming.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/probitylabs/probity/pkg/errors"
)

// MemberKind classifies an archive member.
type MemberKind int

const (
	MemberFile MemberKind = iota
	MemberDir
	MemberSymlink
	MemberOther // devices, fifos, hard links
)

func (k MemberKind) String() string {
	switch k {
	case MemberFile:
		return "file"
	case MemberDir:
		return "dir"
	case MemberSymlink:
		return "symlink"
	}
	return "other"
}

// Member is one entry of an archive. SHA1 is the hex digest of the
// member's content with CRLF line endings folded to LF, computed only for
// Python source files; other members carry an empty digest. The
// normalization keeps archives built on Windows comparable with ones
// built elsewhere.
type Member struct {
	Path       string
	Size       int64
	Kind       MemberKind
	Executable bool
	SHA1       string
}

// IsPythonSource reports whether the member path names a .py file.
func (m Member) IsPythonSource() bool {
	return m.Kind == MemberFile && strings.HasSuffix(m.Path, ".py")
}

type format int

const (
	formatUnknown format = iota
	formatZip
	formatTarGz
	formatTarBz2
	formatTar
)

// sniff detects the container format from magic bytes. Plain tar has no
// magic at offset zero, so it is recognized by the ustar marker at offset
// 257.
func sniff(f *os.File) (format, error) {
	var header [263]byte
	n, err := f.ReadAt(header[:], 0)
	if err != nil && err != io.EOF {
		return formatUnknown, err
	}
	h := header[:n]
	switch {
	case bytes.HasPrefix(h, []byte("PK\x03\x04")):
		return formatZip, nil
	case bytes.HasPrefix(h, []byte{0x1f, 0x8b}):
		return formatTarGz, nil
	case bytes.HasPrefix(h, []byte("BZh")):
		return formatTarBz2, nil
	case len(h) >= 262 && bytes.Equal(h[257:262], []byte("ustar")):
		return formatTar, nil
	}
	return formatUnknown, nil
}

// Inspect lists the members of the archive at filename. Every failure,
// from an unreadable file to a truncated compression stream, is reported
// with the extraction error code so callers can map it to their own
// failure taxonomy.
func Inspect(filename string) ([]Member, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "open %s", filename)
	}
	defer f.Close()

	kind, err := sniff(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "read %s", filename)
	}

	var members []Member
	switch kind {
	case formatZip:
		members, err = inspectZip(f)
	case formatTarGz, formatTarBz2, formatTar:
		members, err = inspectTar(f, kind)
	default:
		return nil, errors.New(errors.ErrCodeExtraction, "%s: unrecognized archive format", filename)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExtraction, err, "inspect %s", filename)
	}
	return members, nil
}

func inspectZip(f *os.File) ([]Member, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(zr.File))
	for _, zf := range zr.File {
		mode := zf.Mode()
		m := Member{
			Path:       normalizePath(zf.Name),
			Size:       int64(zf.UncompressedSize64),
			Executable: mode&0o111 != 0,
		}
		switch {
		case mode.IsDir() || strings.HasSuffix(zf.Name, "/"):
			m.Kind = MemberDir
		case mode&os.ModeSymlink != 0:
			m.Kind = MemberSymlink
		case mode.IsRegular():
			m.Kind = MemberFile
		default:
			m.Kind = MemberOther
		}
		if m.IsPythonSource() {
			rc, err := zf.Open()
			if err != nil {
				return nil, err
			}
			m.SHA1, err = normalizedSHA1(rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
		}
		members = append(members, m)
	}
	return members, nil
}

func inspectTar(f *os.File, kind format) ([]Member, error) {
	r, err := decompress(f, kind)
	if err != nil {
		return nil, err
	}

	var members []Member
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return nil, err
		}
		m := Member{
			Path:       normalizePath(hdr.Name),
			Size:       hdr.Size,
			Executable: hdr.FileInfo().Mode()&0o111 != 0,
		}
		switch hdr.Typeflag {
		case tar.TypeReg:
			m.Kind = MemberFile
		case tar.TypeDir:
			m.Kind = MemberDir
		case tar.TypeSymlink:
			m.Kind = MemberSymlink
		default:
			m.Kind = MemberOther
		}
		if m.IsPythonSource() {
			m.SHA1, err = normalizedSHA1(tr)
			if err != nil {
				return nil, err
			}
		}
		members = append(members, m)
	}
}

func decompress(f *os.File, kind format) (io.Reader, error) {
	switch kind {
	case formatTarGz:
		return gzip.NewReader(f)
	case formatTarBz2:
		return bzip2.NewReader(f), nil
	}
	return f, nil
}

// normalizePath folds member names to forward slashes and strips leading
// "./" segments so the same file spells identically across archive tools.
func normalizePath(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimPrefix(name, "./")
	return strings.TrimSuffix(name, "/")
}

// normalizedSHA1 hashes content with "\r\n" folded to "\n". Python source
// files are small, so the whole member is buffered; hashing incrementally
// would have to track CRLF pairs split across read boundaries.
func normalizedSHA1(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// SourceKey maps a member path to the key it is compared under. For
// sdists the wrapping "<name>-<version>/" directory and a conventional
// "src/" layer are stripped; binary distributions already store paths
// relative to the install root.
func SourceKey(memberPath string, isSdist bool) string {
	key := memberPath
	if isSdist {
		if _, rest, found := strings.Cut(key, "/"); found {
			key = rest
		}
		key = strings.TrimPrefix(key, "src/")
	}
	return key
}
