// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError int

func (e codedError) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e codedError) ExitCode() int { return int(e) }

func TestReportPlainError(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer

	code := report(&output, errors.New("socket missing"))
	if code != 1 {
		t.Errorf("code: got %d, want 1", code)
	}
	if got := output.String(); got != "error: socket missing\n" {
		t.Errorf("output: got %q", got)
	}
}

func TestReportExitCoder(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer

	code := report(&output, fmt.Errorf("wrapped: %w", codedError(3)))
	if code != 3 {
		t.Errorf("code: got %d, want 3", code)
	}
	if output.Len() != 0 {
		t.Errorf("output: got %q, want nothing", output.String())
	}
}
