package domain

import (
	"testing"

	"pollcore/testutil"
)

// The catalogue schema is the one package outside consumers may depend on;
// it must not pull implementation packages with it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/domain must not depend on internal packages")
}
