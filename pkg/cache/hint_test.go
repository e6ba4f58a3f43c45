package cache

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
)

func TestSanitizeHint(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"multi part", []string{"orders", "2024"}, "orders/2024"},
		{"single part", []string{"lego-set_42.v2"}, "lego-set_42.v2"},
		{"spaces and symbols", []string{"my set", "#1?"}, "my_set/_1_"},
		{"slash inside part", []string{"a/b"}, "a_b"},
		{"dot segments neutralized", []string{"..", "etc", "."}, "__/etc/_"},
		{"blank parts dropped", []string{"", "orders", "   "}, "orders"},
		{"all blank", []string{" ", ""}, ""},
		{"unicode", []string{"café"}, "caf_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHint(tt.parts...); got != tt.want {
				t.Errorf("SanitizeHint(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestSanitizeHint_Alphabet(t *testing.T) {
	segment := regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	got := SanitizeHint("orders", "2024", "x y:z", "ü$")
	for _, seg := range strings.Split(got, "/") {
		if !segment.MatchString(seg) {
			t.Errorf("segment %q of %q contains characters outside [A-Za-z0-9._-]", seg, got)
		}
	}
}

func TestHintFromContext(t *testing.T) {
	if _, ok := HintFromContext(context.Background()); ok {
		t.Error("background context should carry no hint")
	}

	ctx := WithHint(context.Background(), "orders", "2024")
	hint, ok := HintFromContext(ctx)
	if !ok || hint != "orders/2024" {
		t.Errorf("HintFromContext() = %q, %v, want %q, true", hint, ok, "orders/2024")
	}

	if _, ok := HintFromContext(WithoutHint(ctx)); ok {
		t.Error("WithoutHint should mask the parent hint")
	}
	if _, ok := HintFromContext(ctx); !ok {
		t.Error("parent context must keep its hint after a child clears it")
	}
}

// TestHint_Isolation ensures concurrent calls never observe each other's hints
func TestHint_Isolation(t *testing.T) {
	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("worker/%d", i)
			ctx := WithHint(context.Background(), "worker", fmt.Sprint(i))
			for j := 0; j < 100; j++ {
				if got, _ := HintFromContext(ctx); got != want {
					errs <- fmt.Errorf("worker %d saw hint %q", i, got)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
