package domain

import "fmt"

// NotFoundError reports a missing catalogue entry or slot. Callers opening a
// project treat it as "create new" rather than failure.
type NotFoundError struct {
	Project string
	Slot    SlotKind
}

func (e NotFoundError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("project %s: slot %s not found", e.Project, e.Slot)
	}
	return fmt.Sprintf("project %s not found", e.Project)
}

// StoreError wraps a failed blob-store call with enough context to retry the
// operation manually. It is surfaced to the caller, never retried here.
type StoreError struct {
	Op   string // create_folder, create_file, update_file, get_file, delete_file, list_children
	Name string // logical entity name
	ID   string // store identifier, when known
	Err  error
}

func (e StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %q (%s): %v", e.Op, e.Name, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Name, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }

// ConflictError reports a catalogue write whose revision token no longer
// matches the stored record: another writer got there first. The caller
// re-reads and retries; nothing is overwritten silently.
type ConflictError struct {
	Project  string
	Expected int64
	Actual   int64
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("project %s: catalogue revision conflict (expected %d, have %d)", e.Project, e.Expected, e.Actual)
}

// UnroutableError reports a project-level upload whose filename matches no
// routing rule. The file is rejected loudly instead of being dropped into a
// generic success path.
type UnroutableError struct {
	Project  string
	Filename string
}

func (e UnroutableError) Error() string {
	return fmt.Sprintf("project %s: no routing rule matches %q", e.Project, e.Filename)
}

// Inconsistency describes a detected divergence between the catalogue and
// the blob store. It is a finding, not a failure: checks collect and report
// these instead of crashing.
type Inconsistency struct {
	Project string   `json:"project"`
	Slot    SlotKind `json:"slot,omitempty"`
	ID      string   `json:"id,omitempty"`
	Detail  string   `json:"detail"`
}

func (i Inconsistency) String() string {
	if i.Slot != "" {
		return fmt.Sprintf("%s/%s (%s): %s", i.Project, i.Slot, i.ID, i.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", i.Project, i.ID, i.Detail)
}
