package bitwarden

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Feature names an optional capability of the Bitwarden CLI.
type Feature string

// FeatureNoInteraction is the global --nointeraction flag.
const FeatureNoInteraction Feature = "nointeraction"

// featureMinVersions holds the first CLI release supporting each feature.
var featureMinVersions = map[Feature]*version.Version{
	FeatureNoInteraction: version.Must(version.NewVersion("1.9.0")),
}

// VersionProbe returns the raw output of `bw --version`.
type VersionProbe func(ctx context.Context) (string, error)

// Features caches the CLI version and feature answers for the lifetime of
// one Client. It is not safe for concurrent use.
type Features struct {
	probe     VersionProbe
	probed    bool
	version   *version.Version
	err       error
	supported map[Feature]bool
}

// NewFeatures returns an empty cache backed by probe.
func NewFeatures(probe VersionProbe) *Features {
	return &Features{
		probe:     probe,
		supported: make(map[Feature]bool),
	}
}

// Version returns the CLI version, running the probe at most once.
func (f *Features) Version(ctx context.Context) (*version.Version, error) {
	if !f.probed {
		f.probed = true
		raw, err := f.probe(ctx)
		if err != nil {
			f.err = fmt.Errorf("failed to query bw version: %w", err)
		} else if f.version, err = version.NewVersion(strings.TrimSpace(raw)); err != nil {
			f.err = fmt.Errorf("unrecognized bw version %q: %w", strings.TrimSpace(raw), err)
		}
	}
	return f.version, f.err
}

// Supports reports whether the installed CLI supports feature.
// Unknown features and unknown versions are reported as unsupported.
func (f *Features) Supports(ctx context.Context, feature Feature) bool {
	if ok, cached := f.supported[feature]; cached {
		return ok
	}

	ok := false
	if minVersion, known := featureMinVersions[feature]; known {
		if v, err := f.Version(ctx); err == nil {
			ok = v.GreaterThanOrEqual(minVersion)
		}
	}
	f.supported[feature] = ok
	return ok
}
