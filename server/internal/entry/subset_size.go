package entry

import (
	"encoding/json"
	"fmt"
)

// SubsetSizeRepo records, in order, how many suites each partition ran.
type SubsetSizeRepo struct {
	Base
	sizes []int
}

type subsetSizeState struct {
	Sizes []int `json:"sizes"`
}

// NewSubsetSizeRepo returns an empty repository.
func NewSubsetSizeRepo() *SubsetSizeRepo { return &SubsetSizeRepo{} }

// Add appends one subset size.
func (r *SubsetSizeRepo) Add(size int) error {
	if size < 0 {
		return fmt.Errorf("%w: negative subset size %d", ErrInvalidEntry, size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, size)
	r.touch()
	return nil
}

// List returns the recorded sizes in insertion order.
func (r *SubsetSizeRepo) List() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int{}, r.sizes...)
}

func (r *SubsetSizeRepo) Load(state string) error {
	var st subsetSizeState
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		return fmt.Errorf("subset size state: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = st.Sizes
	r.loaded()
	return nil
}

func (r *SubsetSizeRepo) Dump() (string, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(subsetSizeState{Sizes: append([]int{}, r.sizes...)})
	if err != nil {
		return "", 0, err
	}
	return string(b), r.rev, nil
}
