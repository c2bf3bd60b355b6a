package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stigkj/tlb/server/internal/repo"
)

var (
	// ErrFrozenVersion is returned when recording into a frozen suite time version.
	ErrFrozenVersion = errors.New("frozen suite time versions are read-only")

	// ErrInvalidEntry is returned for entries that fail decoding or validation.
	ErrInvalidEntry = errors.New("invalid entry")
)

// Read returns the entries of the (kind, namespace, version) repository as a
// JSON-encodable slice. Suite times for a version other than LATEST are served
// from that version's frozen copy, freezing it on first access.
func Read(ctx context.Context, reg *repo.Registry, kind repo.Kind, namespace, version string) (any, error) {
	switch kind {
	case repo.KindSuiteResult:
		r, err := SuiteResults(ctx, reg, namespace, version)
		if err != nil {
			return nil, err
		}
		return r.List(), nil
	case repo.KindSuiteTime:
		latest, err := SuiteTimes(ctx, reg, namespace, repo.LatestVersion)
		if err != nil {
			return nil, err
		}
		r, err := latest.ForVersion(ctx, version)
		if err != nil {
			return nil, err
		}
		return r.List(), nil
	case repo.KindSubsetSize:
		r, err := SubsetSizes(ctx, reg, namespace, version)
		if err != nil {
			return nil, err
		}
		return r.List(), nil
	default:
		return nil, fmt.Errorf("%w: %q", repo.ErrUnknownKind, kind)
	}
}

// Record decodes body, a JSON array of the kind's entry type, and applies each
// element to the (kind, namespace, version) repository. It returns the number
// of entries recorded.
func Record(ctx context.Context, reg *repo.Registry, kind repo.Kind, namespace, version string, body []byte) (int, error) {
	switch kind {
	case repo.KindSuiteResult:
		var in []SuiteResult
		if err := json.Unmarshal(body, &in); err != nil {
			return 0, fmt.Errorf("%w: decode suite results: %v", ErrInvalidEntry, err)
		}
		r, err := SuiteResults(ctx, reg, namespace, version)
		if err != nil {
			return 0, err
		}
		for i, res := range in {
			if err := r.Update(res); err != nil {
				return i, err
			}
		}
		return len(in), nil
	case repo.KindSuiteTime:
		if version != repo.LatestVersion {
			return 0, ErrFrozenVersion
		}
		var in []SuiteTime
		if err := json.Unmarshal(body, &in); err != nil {
			return 0, fmt.Errorf("%w: decode suite times: %v", ErrInvalidEntry, err)
		}
		r, err := SuiteTimes(ctx, reg, namespace, version)
		if err != nil {
			return 0, err
		}
		for i, st := range in {
			if err := r.Update(st); err != nil {
				return i, err
			}
		}
		return len(in), nil
	case repo.KindSubsetSize:
		var in []int
		if err := json.Unmarshal(body, &in); err != nil {
			return 0, fmt.Errorf("%w: decode subset sizes: %v", ErrInvalidEntry, err)
		}
		r, err := SubsetSizes(ctx, reg, namespace, version)
		if err != nil {
			return 0, err
		}
		for i, n := range in {
			if err := r.Add(n); err != nil {
				return i, err
			}
		}
		return len(in), nil
	default:
		return 0, fmt.Errorf("%w: %q", repo.ErrUnknownKind, kind)
	}
}
