package validator

import (
	"strings"
	"testing"

	"stagebook/pkg/model"
)

func TestMessageValidator(t *testing.T) {
	v := NewMessageValidator()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: "See you at soundcheck"},
		{name: "empty", body: "", wantErr: "body is required"},
		{name: "too long", body: strings.Repeat("a", 4001), wantErr: "at most 4000"},
		{name: "at limit", body: strings.Repeat("a", 4000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&model.PostMessageRequest{Body: tt.body})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
