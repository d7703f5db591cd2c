package database

import (
	"context"
	"fmt"
	"time"

	"book-review/models"
)

// Open creates the driver for conn.Type and connects it.
func Open(ctx context.Context, conn models.Connection) (DatabaseDriver, error) {
	driver, err := NewDriverFactory().CreateDriver(conn.Type)
	if err != nil {
		return nil, err
	}

	if err := driver.Connect(ctx, conn); err != nil {
		return nil, fmt.Errorf("connect %s: %w", conn.Type, err)
	}
	return driver, nil
}

// Close disconnects the driver, giving it at most timeout to finish.
// A zero timeout waits indefinitely.
func Close(driver DatabaseDriver, timeout time.Duration) error {
	ctx, cancel := withTimeout(context.Background(), timeout)
	defer cancel()
	return driver.Disconnect(ctx)
}
