package models

import (
	"fmt"
	"strings"
	"time"
)

type DatabaseType string

const (
	MongoDB    DatabaseType = "mongodb"
	PostgreSQL DatabaseType = "postgres"
	Memory     DatabaseType = "memory"
)

// ParseDatabaseType accepts the driver names used in configuration, case-insensitively.
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mongodb", "mongo":
		return MongoDB, nil
	case "postgres", "postgresql", "pgx":
		return PostgreSQL, nil
	case "memory", "inmemory":
		return Memory, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", s)
	}
}

// Connection describes how to reach the backing store.
type Connection struct {
	Type     DatabaseType
	URI      string
	Database string
	// Timeout bounds every single store operation; zero disables it.
	Timeout time.Duration
}
