package entry

import (
	"context"
	"fmt"

	"github.com/stigkj/tlb/server/internal/repo"
)

// Constructors returns the kind dispatch table for repo.NewRegistry.
func Constructors() repo.Constructors {
	return repo.Constructors{
		repo.KindSuiteResult: func() repo.Repository { return NewSuiteResultRepo() },
		repo.KindSuiteTime:   func() repo.Repository { return NewSuiteTimeRepo() },
		repo.KindSubsetSize:  func() repo.Repository { return NewSubsetSizeRepo() },
	}
}

// SuiteResults returns the suite result repository for namespace and version.
func SuiteResults(ctx context.Context, reg *repo.Registry, namespace, version string) (*SuiteResultRepo, error) {
	return find[*SuiteResultRepo](ctx, reg, namespace, version, repo.KindSuiteResult)
}

// SuiteTimes returns the suite time repository for namespace and version.
func SuiteTimes(ctx context.Context, reg *repo.Registry, namespace, version string) (*SuiteTimeRepo, error) {
	return find[*SuiteTimeRepo](ctx, reg, namespace, version, repo.KindSuiteTime)
}

// SubsetSizes returns the subset size repository for namespace and version.
func SubsetSizes(ctx context.Context, reg *repo.Registry, namespace, version string) (*SubsetSizeRepo, error) {
	return find[*SubsetSizeRepo](ctx, reg, namespace, version, repo.KindSubsetSize)
}

func find[T repo.Repository](ctx context.Context, reg *repo.Registry, namespace, version string, kind repo.Kind) (T, error) {
	var zero T
	rp, err := reg.FindOrCreate(ctx, namespace, version, kind)
	if err != nil {
		return zero, err
	}
	typed, ok := rp.(T)
	if !ok {
		return zero, fmt.Errorf("entry: %s holds %T, want %T", rp.Identifier(), rp, zero)
	}
	return typed, nil
}
