package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"bad conn", driver.ErrBadConn, ErrUnavailable},
		{"conn done", sql.ErrConnDone, ErrUnavailable},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			classified := classify(tt.err)
			if !errors.Is(classified, tt.sentinel) {
				t.Errorf("Expected %v to be classified as %v, got %v", tt.err, tt.sentinel, classified)
			}
			if !errors.Is(classified, tt.err) {
				t.Errorf("Expected classified error to keep cause %v", tt.err)
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	t.Parallel()

	if classify(nil) != nil {
		t.Error("Expected nil to stay nil")
	}

	other := errors.New("syntax error")
	classified := classify(other)
	if classified != other {
		t.Errorf("Expected unrelated error to pass through unchanged, got %v", classified)
	}
	if errors.Is(classified, ErrUnavailable) || errors.Is(classified, ErrNotFound) {
		t.Error("Unrelated error should not match a sentinel")
	}
}
