package inventory

import (
	"errors"
	"fmt"
)

// CollectionError records one failure encountered while collecting. Terminal
// errors abort the whole (project, family) pair; non-terminal errors apply to
// a single item and collection continues past them. A project-wide terminal
// failure (pre-flight transport failure) carries an empty Family.
type CollectionError struct {
	Project  string
	Family   ResourceFamily
	Message  string
	Terminal bool
}

func (e CollectionError) Error() string {
	scope := string(e.Family)
	if scope == "" {
		scope = "all families"
	}
	kind := "non-terminal"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("%s/%s: %s (%s)", e.Project, scope, e.Message, kind)
}

// ProviderUnavailableError signals that the provider transport could not be
// reached at all: network failure, token acquisition failure, or an API
// response that is neither a disabled-service nor a permission signature.
// It is distinct from the permission classifications produced by the
// pre-flight checker.
type ProviderUnavailableError struct {
	// Op names the provider operation that failed, e.g. "compute.instances.list".
	Op  string
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable during %s: %v", e.Op, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// IsProviderUnavailable reports whether err is a ProviderUnavailableError
// anywhere in its chain.
func IsProviderUnavailable(err error) bool {
	var pe *ProviderUnavailableError
	return errors.As(err, &pe)
}
