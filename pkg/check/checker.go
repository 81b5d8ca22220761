package check

import (
	"context"
	stderrors "errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/probitylabs/probity/pkg/archive"
	"github.com/probitylabs/probity/pkg/artifact"
	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/index"
)

// DefaultParallelism bounds how many releases of a wildcard check run
// concurrently, keeping the load on the index host polite.
const DefaultParallelism = 4

// Checker runs the sdist/bdist consistency pipeline: resolve releases,
// materialize artifacts, inspect archives, compare digests.
type Checker struct {
	Catalog     *index.Client
	Store       *artifact.Store
	SkipYanked  bool
	AllBdists   bool // check every binary artifact, not just the most relevant one
	Parallelism int  // <=0 means DefaultParallelism
}

// ArtifactResult is the outcome for one binary artifact of a release.
// Either Err or Diff is set, never both. Code carries the failure class
// of Err so callers can tell a digest mismatch from an unreadable
// archive without parsing the message.
type ArtifactResult struct {
	Filename string
	Err      string
	Code     errors.Code
	Diff     *Diff
}

// Result is the outcome for one release.
type Result struct {
	Package   string
	Version   string
	Yanked    bool
	Flags     Flags
	SdistOnly bool             // nothing to compare, trivially consistent
	BdistOnly bool             // no source artifact at all
	SdistErr  string           // the sdist itself failed to fetch or read
	SdistCode errors.Code      // failure class of SdistErr
	Artifacts []ArtifactResult // one per checked binary artifact
}

// Summary aggregates a whole invocation. Flags is the bitwise OR across
// results and is the value the process exits with.
type Summary struct {
	Package string
	Flags   Flags
	Results []Result
}

// Check resolves the selector and checks every selected release.
// Per-release failures are folded into that release's flags; only
// catalog-level failures (unknown package, unknown exact version) return
// an error. On cancellation the summary still carries every release that
// finished.
func (c *Checker) Check(ctx context.Context, sel index.Selector, useJSON, refresh bool) (*Summary, error) {
	pkg, err := c.Catalog.Package(ctx, sel.Name, useJSON, refresh)
	if err != nil {
		return nil, err
	}
	releases, err := pkg.Select(sel, c.SkipYanked)
	if err != nil {
		return nil, err
	}

	limit := c.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}

	results := make([]*Result, len(releases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, rel := range releases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := c.CheckRelease(gctx, rel)
			results[i] = &r
			return nil
		})
	}
	werr := g.Wait()

	// results is indexed by dispatch position, so walking it in order
	// reports ascending versions regardless of completion order.
	s := &Summary{Package: pkg.Name}
	for _, r := range results {
		if r == nil {
			continue // cancelled before this release ran
		}
		s.Flags |= r.Flags
		s.Results = append(s.Results, *r)
	}
	if werr != nil && !stderrors.Is(werr, context.Canceled) {
		return s, werr
	}
	return s, nil
}

// CheckRelease checks a single release. A release with binaries but no
// sdist short-circuits to FlagBdistOnly without fetching anything; a
// release with no binaries is trivially consistent. Unless AllBdists is
// set, only the most relevant binary is compared.
func (c *Checker) CheckRelease(ctx context.Context, rel *index.Release) Result {
	r := Result{Package: rel.Name, Version: rel.Version, Yanked: rel.Yanked}

	sdist := rel.Sdist()
	binaries := rel.Binaries()
	switch {
	case sdist == nil && len(binaries) == 0:
		r.SdistOnly = true // nothing usable published; nothing to flag
		return r
	case sdist == nil:
		r.BdistOnly = true
		r.Flags = FlagBdistOnly
		return r
	case len(binaries) == 0:
		r.SdistOnly = true
		return r
	}

	sdistHashes, err := c.sourceHashes(ctx, rel.Name, *sdist, true)
	if err != nil {
		// Without the sdist baseline no comparison is possible.
		r.Flags = FlagExtractionError
		r.SdistErr = err.Error()
		r.SdistCode = errors.GetCode(err)
		return r
	}

	if !c.AllBdists && len(binaries) > 1 {
		binaries = []index.Artifact{mostRelevant(binaries)}
	}

	for _, b := range binaries {
		bdistHashes, err := c.sourceHashes(ctx, rel.Name, b, false)
		if err != nil {
			r.Flags |= FlagExtractionError
			r.Artifacts = append(r.Artifacts, ArtifactResult{
				Filename: b.Filename,
				Err:      err.Error(),
				Code:     errors.GetCode(err),
			})
			continue
		}
		diff := Compare(sdistHashes, bdistHashes)
		r.Flags |= diff.Flags()
		r.Artifacts = append(r.Artifacts, ArtifactResult{Filename: b.Filename, Diff: &diff})
	}
	return r
}

// mostRelevant picks the single binary to audit when a release publishes
// several. A pure-Python py3 wheel is preferred, then a universal
// py2.py3 wheel; failing both, the newest upload wins (platform wheels
// and eggs carry the same Python sources, so one representative is
// enough).
func mostRelevant(binaries []index.Artifact) index.Artifact {
	for _, pattern := range []string{"-py3-none-any.whl", "-py2.py3-none-any.whl"} {
		for i := range binaries {
			if strings.HasSuffix(binaries[i].Filename, pattern) {
				return binaries[i]
			}
		}
	}
	best := 0
	for i := 1; i < len(binaries); i++ {
		if binaries[i].UploadTime.After(binaries[best].UploadTime) {
			best = i
		}
	}
	return binaries[best]
}

func (c *Checker) sourceHashes(ctx context.Context, name string, a index.Artifact, isSdist bool) (map[string]string, error) {
	path, err := c.Store.Materialize(ctx, name, a)
	if err != nil {
		return nil, err
	}
	members, err := archive.Inspect(path)
	if err != nil {
		return nil, err
	}
	return SourceHashes(members, isSdist), nil
}
