package index

import (
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/probitylabs/probity/pkg/errors"
)

// ParseSimple parses the simple HTML index listing for pkg into a Package.
//
// Each <a> element carries the artifact URL with the checksum in the URL
// fragment ("...#sha256=<hex>") and optionally a data-requires-python
// attribute. The listing format has no sizes or upload times, so those
// fields stay zero.
//
// Malformed entries are skipped and reported through logf unless strict is
// set, in which case the first one fails the parse.
func ParseSimple(pkg string, r io.Reader, strict bool, logf func(string, ...any)) (*Package, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse simple index for %s", pkg)
	}

	var entries []entry
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == "a" {
			a, err := artifactFromAnchor(n)
			if err != nil {
				if strict {
					return err
				}
				logf("skipping index entry: %v", err)
			} else {
				entries = append(entries, entry{artifact: a})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return nil, err
	}

	return buildPackage(pkg, entries, strict, logf)
}

// artifactFromAnchor converts one <a> element into an Artifact. The
// version is recovered from the filename since the listing format does not
// state it separately.
func artifactFromAnchor(n *html.Node) (Artifact, error) {
	var href, requiresPython string
	var yanked bool
	for _, attr := range n.Attr {
		switch attr.Key {
		case "href":
			href = attr.Val
		case "data-requires-python":
			requiresPython = attr.Val
		case "data-yanked":
			yanked = true
		}
	}
	if href == "" {
		return Artifact{}, errors.New(errors.ErrCodeParse, "anchor without href")
	}

	url, fragment, _ := strings.Cut(href, "#")
	basename := path.Base(url)
	if basename == "" || basename == "." || basename == "/" {
		return Artifact{}, errors.New(errors.ErrCodeParse, "no filename in href %q", href)
	}

	kind, err := KindForFilename(basename)
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeParse, err, "classify %s", basename)
	}

	var sha256 string
	if algo, hex, ok := strings.Cut(fragment, "="); ok && algo == "sha256" {
		sha256 = hex
	}

	return Artifact{
		Filename:       basename,
		URL:            url,
		SHA256:         sha256,
		Kind:           kind,
		RequiresPython: requiresPython,
		Yanked:         yanked,
	}, nil
}
