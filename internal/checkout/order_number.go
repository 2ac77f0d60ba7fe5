package checkout

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const orderDayLayout = "060102"

const nextSequenceSQL = `
INSERT INTO order_sequences (day, value, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (day) DO UPDATE
SET value = order_sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// SequenceAllocator hands out ORD-YYMMDD-NNNN numbers from a per-day counter row. The upsert takes
// the row lock, so concurrent checkouts serialize on it until their transactions end.
type SequenceAllocator struct{}

func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{}
}

// Next allocates the following number for the UTC day of now.
func (SequenceAllocator) Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	now = now.UTC()
	day := now.Format(orderDayLayout)
	var value int64
	if err := tx.WithContext(ctx).Raw(nextSequenceSQL, day, now).Scan(&value).Error; err != nil {
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	if value <= 0 {
		return "", fmt.Errorf("allocate order number: counter returned %d", value)
	}
	return FormatOrderNumber(day, value), nil
}

// FormatOrderNumber pads the sequence to four digits; it widens past 9999.
func FormatOrderNumber(day string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day, seq)
}
