package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLI_CleanCatalogue(t *testing.T) {
	t.Setenv("POLLCORE_BLOB_DRIVER", "fs")
	t.Setenv("POLLCORE_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "blobs"))
	t.Setenv("POLLCORE_CATALOG_DRIVER", "blob")

	var stdout, stderr bytes.Buffer
	code := cli(nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "consistent") {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestCLI_UnknownProject(t *testing.T) {
	t.Setenv("POLLCORE_BLOB_DRIVER", "fs")
	t.Setenv("POLLCORE_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "blobs"))
	t.Setenv("POLLCORE_CATALOG_DRIVER", "blob")

	var stdout, stderr bytes.Buffer
	code := cli([]string{"-project", "missing"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "not found") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestCLI_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d", code)
	}
}
