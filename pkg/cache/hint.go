package cache

import (
	"context"
	"strings"
)

type hintContextKey struct{}

// WithHint returns a context carrying a cache key hint for the calls made with it.
// Parts are sanitized and joined with "/", so WithHint(ctx, "orders", "2024")
// stores the entry under "orders/2024". A hint that sanitizes to the empty
// string behaves as if no hint was set.
func WithHint(ctx context.Context, parts ...string) context.Context {
	return context.WithValue(ctx, hintContextKey{}, SanitizeHint(parts...))
}

// WithoutHint returns a context that masks any hint set on a parent context.
func WithoutHint(ctx context.Context) context.Context {
	return context.WithValue(ctx, hintContextKey{}, "")
}

// HintFromContext returns the sanitized hint carried by ctx, if any.
func HintFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	hint, _ := ctx.Value(hintContextKey{}).(string)
	return hint, hint != ""
}

// SanitizeHint maps every character outside [A-Za-z0-9._-] to '_' and joins
// the non-blank parts with "/". Segments made only of dots are replaced so a
// hint can never walk out of the cache root.
func SanitizeHint(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seg := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			case r == '.', r == '_', r == '-':
				return r
			default:
				return '_'
			}
		}, part)
		if strings.Trim(seg, ".") == "" {
			seg = strings.Repeat("_", len(seg))
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/")
}
