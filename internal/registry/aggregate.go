package registry

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pubcask/pubcask/internal/cache"
	"github.com/pubcask/pubcask/pkg/archive"
	"github.com/pubcask/pubcask/pkg/logger"
	"github.com/pubcask/pubcask/pkg/manifest"
	"github.com/pubcask/pubcask/pkg/validation"
)

// fetchConcurrency bounds the parallel per-version manifest fetches
// during a listing. Each fetch is independent and read-only.
const fetchConcurrency = 4

// GetPackage builds the ordered package view for name. Versions whose
// archive cannot be fetched or introspected are logged and skipped; the
// package is absent only when no version at all is usable.
func (s *Service) GetPackage(ctx context.Context, name string) (*Package, error) {
	// A name that cannot exist must not reach the storage path layer.
	if err := validation.ValidatePackageName(name); err != nil {
		return nil, ErrPackageNotFound
	}

	labels, err := s.store.ListVersions(ctx, name)
	if err != nil {
		return nil, &UpstreamError{Op: "list versions", Err: err}
	}
	if len(labels) == 0 {
		return nil, ErrPackageNotFound
	}

	results := make([]*PackageVersion, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, label := range labels {
		g.Go(func() error {
			pv, err := s.loadVersion(gctx, name, label)
			if err != nil {
				// Partial-success policy: one corrupt or missing
				// version must not hide the others.
				logger.Warn("Skipping unreadable package version",
					"package", name, "version", label, "error", err)
				return nil
			}
			results[i] = pv
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes them.
	_ = g.Wait()

	pkg := &Package{Name: name}
	for _, pv := range results {
		if pv == nil {
			continue
		}
		pkg.Versions = append(pkg.Versions, *pv)
		if pkg.Latest == nil || compareVersions(pv.Version, pkg.Latest.Version) > 0 {
			latest := *pv
			pkg.Latest = &latest
		}
	}
	if len(pkg.Versions) == 0 {
		return nil, ErrPackageNotFound
	}
	return pkg, nil
}

// loadVersion resolves one version's manifest and hash, consulting the
// cache before falling back to a download and introspection.
func (s *Service) loadVersion(ctx context.Context, name, label string) (*PackageVersion, error) {
	if entry, ok := s.cache.Get(name, label); ok {
		return s.packageVersion(name, label, entry.Pubspec, entry.Sha256), nil
	}

	data, err := s.store.Download(ctx, name, label, ArchiveFilename(name, label))
	if err != nil {
		return nil, err
	}
	pa, err := archive.Introspect(data)
	if err != nil {
		return nil, err
	}

	s.cache.Put(name, label, &cache.Entry{Pubspec: pa.Manifest, Sha256: pa.Sha256})
	return s.packageVersion(name, label, pa.Manifest, pa.Sha256), nil
}

func (s *Service) packageVersion(name, label string, pubspec manifest.Value, sha string) *PackageVersion {
	return &PackageVersion{
		Version:    label,
		ArchiveURL: s.baseURL + "/packages/" + name + "/versions/" + label + ".tar.gz",
		Sha256:     sha,
		Pubspec:    pubspec,
	}
}

// compareVersions orders two version labels by their first three
// dot-separated integer components (major, minor, patch). Non-numeric
// or missing components count as 0. This is deliberately not full
// semantic-version precedence: pre-release tags do not participate, and
// equal triples compare equal so the first-seen candidate wins a tie.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < 3; i++ {
		av := component(as, i)
		bv := component(bs, i)
		if av != bv {
			if av > bv {
				return 1
			}
			return -1
		}
	}
	return 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return n
}
