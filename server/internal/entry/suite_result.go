package entry

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SuiteResult is the outcome of one test suite in a build.
type SuiteResult struct {
	Name   string `json:"name"`
	Failed bool   `json:"failed"`
}

// SuiteResultRepo tracks the latest result per suite for one namespace and
// version.
type SuiteResultRepo struct {
	Base
	results map[string]SuiteResult
}

type suiteResultState struct {
	Results []SuiteResult `json:"results"`
}

// NewSuiteResultRepo returns an empty repository.
func NewSuiteResultRepo() *SuiteResultRepo {
	return &SuiteResultRepo{results: make(map[string]SuiteResult)}
}

// Update records res, replacing any earlier result for the same suite.
func (r *SuiteResultRepo) Update(res SuiteResult) error {
	if res.Name == "" {
		return fmt.Errorf("%w: suite result with empty name", ErrInvalidEntry)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[res.Name] = res
	r.touch()
	return nil
}

// List returns the results ordered by suite name.
func (r *SuiteResultRepo) List() []SuiteResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

func (r *SuiteResultRepo) listLocked() []SuiteResult {
	out := make([]SuiteResult, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *SuiteResultRepo) Load(state string) error {
	var st suiteResultState
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		return fmt.Errorf("suite result state: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]SuiteResult, len(st.Results))
	for _, res := range st.Results {
		r.results[res.Name] = res
	}
	r.loaded()
	return nil
}

func (r *SuiteResultRepo) Dump() (string, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(suiteResultState{Results: r.listLocked()})
	if err != nil {
		return "", 0, err
	}
	return string(b), r.rev, nil
}
