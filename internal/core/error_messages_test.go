package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/schemadmin/internal/schema"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"invalid document", fmt.Errorf("%w: empty document", schema.ErrInvalidDocument), "SCH001"},
		{"table not found", fmt.Errorf("%w: main_x", ErrTableNotFound), "TBL001"},
		{"no table", ErrNoTable, "TBL002"},
		{"row not found", fmt.Errorf("main_people id 4: %w", ErrRowNotFound), "TBL003"},
		{"duplicate relation", errors.New(`ERROR: relation "main_people" already exists (SQLSTATE 42P07)`), "DB001"},
		{"value too long", errors.New("ERROR: value too long for type character varying(255)"), "DB002"},
		{"connection refused", errors.New("apply schema: dial tcp: connection refused"), "DB004"},
		{"connection reset", errors.New("read: connection reset by peer"), "DB005"},
		{"deadline", fmt.Errorf("apply schema: %w", context.DeadlineExceeded), "DB006"},
		{"deadlock", errors.New("ERROR: deadlock detected"), "DB007"},
		{"body too large", errors.New("http: request body too large"), "FILE001"},
		{"no file", errors.New("no file provided"), "FILE004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("CONNECTION REFUSED"), "DB004"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}
