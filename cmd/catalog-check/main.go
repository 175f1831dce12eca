// Command catalog-check verifies the catalogue against the blob store and
// reports every divergence: dangling references left by interrupted deletes
// and store objects no catalogue slot claims. Stores are configured through
// the POLLCORE_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"pollcore/internal/blob"
	"pollcore/internal/catalog"
	"pollcore/internal/core"
	"pollcore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalog-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var projectName string
	fs.StringVar(&projectName, "project", "", "check a single project instead of the whole catalogue")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	blobs, err := blob.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "open blob store: %v\n", err)
		return 2
	}
	cat, err := catalog.Open(ctx, blobs)
	if err != nil {
		fmt.Fprintf(stderr, "open catalogue: %v\n", err)
		return 2
	}
	svc := core.NewService(blobs, cat)

	findings, err := collect(ctx, svc, projectName)
	if err != nil {
		fmt.Fprintf(stderr, "catalogue check failed: %v\n", err)
		return 2
	}
	if len(findings) == 0 {
		fmt.Fprintln(stdout, "Catalogue is consistent.")
		return 0
	}
	for _, finding := range findings {
		fmt.Fprintln(stdout, finding.String())
	}
	fmt.Fprintf(stdout, "%d inconsistencies found.\n", len(findings))
	return 1
}

func collect(ctx context.Context, svc *core.Service, projectName string) ([]domain.Inconsistency, error) {
	if projectName != "" {
		return svc.CheckProject(ctx, projectName)
	}
	byProject, err := svc.CheckAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Inconsistency
	for _, findings := range byProject {
		out = append(out, findings...)
	}
	return out, nil
}
