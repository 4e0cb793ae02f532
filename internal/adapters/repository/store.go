// Package repository holds the single shared stream record behind an
// injectable store interface.
package repository

import (
	"context"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
)

// Store provides read/replace access to the shared stream record.
type Store interface {
	// Get returns a copy of the current record.
	Get(ctx context.Context) (model.StreamRecord, error)

	// Replace validates patch, merges it over the current record and stores the
	// result under a new revision. Fields absent from patch keep their values.
	// Range violations wrap model.ErrInvalidRecord and leave the record unchanged.
	Replace(ctx context.Context, patch model.RecordPatch) (model.StreamRecord, error)
}

// Stats describes store activity for the /stats endpoint.
type Stats struct {
	Revision  uint64    `json:"revision"`
	Replaces  uint64    `json:"replaces"`
	Rejected  uint64    `json:"rejected"`
	UpdatedAt time.Time `json:"updatedAt"`
}
