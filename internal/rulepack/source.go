package rulepack

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Source supplies rule pack documents to the reload loop. Implementations
// return the raw document bytes; parsing and validation happen in Load.
type Source interface {
	// Fetch returns the current rule pack document
	Fetch(ctx context.Context) ([]byte, error)

	// Describe identifies the source for logging
	Describe() string
}

// FileSource reads the rule pack from a local YAML/JSON file
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule pack file: %w", err)
	}
	return data, nil
}

func (s *FileSource) Describe() string {
	return "file:" + s.Path
}

// RedisSource reads the rule pack document from a Redis key, letting an
// operator push new packs without touching the bot host.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource creates a Redis-backed source
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("rule pack key %q not found", s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rule pack from redis: %w", err)
	}
	return data, nil
}

func (s *RedisSource) Describe() string {
	return "redis:" + s.key
}
