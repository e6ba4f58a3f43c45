package cache

import (
	"context"
	"fmt"

	valkey "github.com/valkey-io/valkey-go"
)

// ValkeyBackend stores artifacts like RedisBackend, using the valkey-go client.
// Both backends share the key layout, so either can read the other's entries.
type ValkeyBackend struct {
	client valkey.Client
	prefix string
}

// NewValkeyBackend creates a Valkey backend. A nil client wraps ErrConfiguration.
func NewValkeyBackend(client valkey.Client, prefix string) (*ValkeyBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: valkey client is required", ErrConfiguration)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &ValkeyBackend{client: client, prefix: prefix}, nil
}

// Name implements Backend.
func (v *ValkeyBackend) Name() string {
	return "valkey"
}

func (v *ValkeyBackend) keys(key string) (bodyKey, headersKey string) {
	base := v.prefix + ":" + key
	return base + BodySuffix, base + HeadersSuffix
}

// Load implements Backend.
func (v *ValkeyBackend) Load(ctx context.Context, key string) ([]byte, []byte, bool, error) {
	bodyKey, headersKey := v.keys(key)

	vals, err := v.client.Do(ctx, v.client.B().Mget().Key(bodyKey, headersKey).Build()).ToArray()
	if err != nil {
		return nil, nil, false, fmt.Errorf("valkey mget: %w", err)
	}
	if len(vals) != 2 || vals[0].IsNil() || vals[1].IsNil() {
		return nil, nil, false, nil
	}

	body, err := vals[0].AsBytes()
	if err != nil {
		return nil, nil, false, fmt.Errorf("valkey mget body: %w", err)
	}
	headers, err := vals[1].AsBytes()
	if err != nil {
		return nil, nil, false, fmt.Errorf("valkey mget headers: %w", err)
	}
	return body, headers, true, nil
}

// Save implements Backend. Both keys are written in one MULTI/EXEC.
func (v *ValkeyBackend) Save(ctx context.Context, key string, body, headers []byte) error {
	bodyKey, headersKey := v.keys(key)

	cmds := valkey.Commands{
		v.client.B().Multi().Build(),
		v.client.B().Set().Key(bodyKey).Value(valkey.BinaryString(body)).Build(),
		v.client.B().Set().Key(headersKey).Value(valkey.BinaryString(headers)).Build(),
		v.client.B().Exec().Build(),
	}
	return execError(v.client.DoMulti(ctx, cmds...))
}

// execError reports the first failure of a MULTI/EXEC batch. Commands that
// fail at execution time surface only as elements of the EXEC reply.
func execError(resps []valkey.ValkeyResult) error {
	if len(resps) == 0 {
		return nil
	}
	for _, resp := range resps {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey set: %w", err)
		}
	}
	replies, err := resps[len(resps)-1].ToArray()
	if err != nil {
		return fmt.Errorf("valkey exec: %w", err)
	}
	for _, reply := range replies {
		if err := reply.Error(); err != nil {
			return fmt.Errorf("valkey exec: %w", err)
		}
	}
	return nil
}
