// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsInvalidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrInvalidAPIKey, true},
		{"wrapped sentinel", fmt.Errorf("create session: %w", ErrInvalidAPIKey), true},
		{"provider error linked", &ProviderError{Status: 400, Message: "bad", Err: ErrInvalidAPIKey}, true},
		{"free text", errors.New("[400] API key not valid. Please pass a valid API key."), true},
		{"free text lower", errors.New("api key not valid"), true},
		{"transport", fmt.Errorf("%w: connection refused", ErrTransport), false},
		{"rate limited", &ProviderError{Status: 429, Err: ErrRateLimited}, false},
		{"other provider error", &ProviderError{Status: 500, Message: "internal"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidAPIKey(tt.err); got != tt.want {
				t.Errorf("IsInvalidAPIKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		err  *ProviderError
		want string
	}{
		{&ProviderError{Status: 400, Code: "INVALID_ARGUMENT", Message: "bad request"}, "bad request (HTTP 400 INVALID_ARGUMENT)"},
		{&ProviderError{Status: 503, Message: "overloaded"}, "overloaded (HTTP 503)"},
		{&ProviderError{Code: "SAFETY", Message: "response blocked"}, "response blocked (SAFETY)"},
		{&ProviderError{Status: 429, Err: ErrRateLimited}, "rate limited (HTTP 429)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(fmt.Errorf("stream: %w", context.Canceled)); got != "request cancelled" {
		t.Errorf("Describe(canceled) = %q", got)
	}
	if got := Describe(errors.New("boom")); got != "boom" {
		t.Errorf("Describe = %q", got)
	}
	if got := Describe(nil); got != "" {
		t.Errorf("Describe(nil) = %q", got)
	}
}
