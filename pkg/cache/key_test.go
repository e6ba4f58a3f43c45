package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestDigestKey(t *testing.T) {
	tests := []struct {
		name   string
		method string
		uri    string
		want   string
	}{
		{
			name:   "GET request",
			method: "GET",
			uri:    "http://example.com/api/data",
			want:   "5baf6d04e2b8e60664dd4f491a44efa7",
		},
		{
			name:   "empty method defaults to GET",
			method: "",
			uri:    "http://example.com/api/data",
			want:   "5baf6d04e2b8e60664dd4f491a44efa7",
		},
		{
			name:   "method is part of the identity",
			method: "POST",
			uri:    "http://example.com/api/data",
			want:   "549dae9cceb8a8249c3047122463c74f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DigestKey(tt.method, tt.uri); got != tt.want {
				t.Errorf("DigestKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDigestKey_Determinism ensures same input always produces same key
func TestDigestKey_Determinism(t *testing.T) {
	first := DigestKey("GET", "http://example.com/v1/orders?page=2")
	for i := 0; i < 10; i++ {
		if got := DigestKey("GET", "http://example.com/v1/orders?page=2"); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
	if other := DigestKey("GET", "http://example.com/v1/orders?page=3"); other == first {
		t.Errorf("different URIs produced the same key %v", other)
	}
}

func TestKeyFor(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com/api/data", nil)

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "no hint uses digest",
			ctx:  context.Background(),
			want: "5baf6d04e2b8e60664dd4f491a44efa7",
		},
		{
			name: "hint wins",
			ctx:  WithHint(context.Background(), "orders", "2024"),
			want: "orders/2024",
		},
		{
			name: "blank hint falls back to digest",
			ctx:  WithHint(context.Background(), "  ", ""),
			want: "5baf6d04e2b8e60664dd4f491a44efa7",
		},
		{
			name: "masked hint falls back to digest",
			ctx:  WithoutHint(WithHint(context.Background(), "orders")),
			want: "5baf6d04e2b8e60664dd4f491a44efa7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFor(tt.ctx, req); got != tt.want {
				t.Errorf("KeyFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{DigestKey("GET", "http://example.com/api/data"), false},
		{SanitizeHint("sets", "10497-1"), false},
		{SanitizeHint("..", "etc", "passwd"), false},
		{"orders/2024", false},
		{"a..b/c", false},
		{"", true},
		{"/etc/passwd", true},
		{"../outside", true},
		{"orders/../../outside", true},
		{"orders/./2024", true},
		{"orders/..", true},
		{`..\outside`, true},
		{"nul\x00byte", true},
	}

	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) error = %v, want ErrInvalidKey", tt.key, err)
		}
	}
}
