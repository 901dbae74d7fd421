package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/openportal"
	"github.com/aretw0/openportal/pkg/config"
)

// ErrInvalidGraph is returned by Validate when at least one graph has issues.
var ErrInvalidGraph = errors.New("invalid action graph")

// Validate checks every graph file against the built-in kinds and prints a
// line per file.
func Validate(paths []string, out io.Writer) error {
	engine, err := openportal.New()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		graph, err := config.LoadActionGraph(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		if err := engine.Validate(graph).Err(); err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrInvalidGraph, failed, len(paths))
	}
	return nil
}
