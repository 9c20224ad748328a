// File: api/errors_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeOK},
		{"cancelled", ErrOperationCancelled, ErrCodeCancelled},
		{"stopped", ErrServiceStopped, ErrCodeStopped},
		{"registration", ErrRegistration, ErrCodeRegistration},
		{"wrapped cancelled", fmt.Errorf("read: %w", ErrOperationCancelled), ErrCodeCancelled},
		{"system", NewSystemError("connect", unix.ECONNREFUSED), ErrCodeSystem},
		{"unclassified", errors.New("boom"), ErrCodeInvalidArgument},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Errorf("%s: CodeOf = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestSystemErrorUnwrap(t *testing.T) {
	err := NewSystemError("bind", unix.EADDRINUSE)
	if !errors.Is(err, unix.EADDRINUSE) {
		t.Fatal("SystemError does not unwrap to its errno")
	}
	var se *SystemError
	if !errors.As(err, &se) || se.Op != "bind" {
		t.Fatalf("errors.As mismatch: %+v", se)
	}
}
