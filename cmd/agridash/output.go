package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/agri-dashboard/internal/controller"
)

var (
	errRejected = errors.New("input rejected")
	errDegraded = errors.New("service unavailable")
)

// printOutcome writes an outcome for a terminal. Rejected outcomes and
// degraded outcomes without a simulated result are returned as errors.
func printOutcome[T any](w io.Writer, out controller.Outcome[T]) error {
	switch out.Status {
	case controller.StatusRejected:
		for _, msg := range out.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
		return fmt.Errorf("%w: %s", errRejected, strings.Join(out.Errors, "; "))
	case controller.StatusDegraded:
		fmt.Fprintf(w, "Service unavailable. %s\n", out.Reason)
		if !out.HasResult {
			return fmt.Errorf("%w: %s", errDegraded, out.Reason)
		}
		fmt.Fprintln(w, "Simulated result (not from the prediction service):")
	}
	return printJSON(w, out.Result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
