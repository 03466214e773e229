// Package valkeystore is a thin JSON object store on top of valkey. Keys are
// laid out as <prefix>:<objectType>:<id>.
package valkeystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrNotFound is returned when the key does not exist or has expired.
var ErrNotFound = errors.New("object not found")

type Store struct {
	valkey valkey.Client
	prefix string
}

func New(valkeyClient valkey.Client, prefix string) *Store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *Store) Get(ctx context.Context, objectType, objectID string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.Key(objectType, objectID)).Build()).AsBytes()
	if err != nil {
		return s.replyError("get", err)
	}

	return s.decode(bytes, decodeInto)
}

// Take returns the object and deletes it in a single GETDEL round trip.
func (s *Store) Take(ctx context.Context, objectType, objectID string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Getdel().Key(s.Key(objectType, objectID)).Build()).AsBytes()
	if err != nil {
		return s.replyError("getdel", err)
	}

	return s.decode(bytes, decodeInto)
}

// Set stores val. A non-positive ttl stores the object without expiry.
func (s *Store) Set(ctx context.Context, objectType, id string, val any, ttl time.Duration) error {
	key := s.Key(objectType, id)
	bytes, err := s.encode(val)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}

	cmd := s.valkey.B().Set().Key(key).Value(valkey.BinaryString(bytes)).Build()
	if ttl > 0 {
		cmd = s.valkey.B().Setex().Key(key).Seconds(ttlSeconds(ttl)).Value(valkey.BinaryString(bytes)).Build()
	}

	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *Store) Destroy(ctx context.Context, objectType, id string) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.Key(objectType, id)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

// ttlSeconds rounds up; SETEX rejects a zero TTL.
func ttlSeconds(ttl time.Duration) int64 {
	seconds := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}

	return seconds
}

func (s *Store) Key(objectType, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *Store) replyError(command string, err error) error {
	valkeyErr, ok := valkey.IsValkeyErr(err)
	if ok && valkeyErr.IsNil() {
		return ErrNotFound
	}

	return fmt.Errorf("executing %s command: %w", command, err)
}

func (s *Store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *Store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}
