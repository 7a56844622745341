package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ReceiptStore is the slice of the payment repository the sequencer needs.
type ReceiptStore interface {
	LatestReceipt(ctx context.Context, tenantID int64, prefix string) (string, error)
	CountForYear(ctx context.Context, tenantID int64, year int) (int64, error)
}

// ReceiptSequencer generates receipt numbers of the form
// REC-<year>-<5-digit sequence> when the cashier does not supply one. The
// sequence is advisory: two concurrent creates may draw the same number,
// and the ledger's unique constraint turns the loser into a Conflict.
type ReceiptSequencer struct {
	store  ReceiptStore
	prefix string
}

func NewReceiptSequencer(store ReceiptStore, prefix string) *ReceiptSequencer {
	if prefix == "" {
		prefix = "REC"
	}
	return &ReceiptSequencer{store: store, prefix: prefix}
}

func (s *ReceiptSequencer) Next(ctx context.Context, tenantID int64, year int) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", s.prefix, year)

	latest, err := s.store.LatestReceipt(ctx, tenantID, yearPrefix)
	if err != nil {
		return "", err
	}

	next := int64(1)
	if latest != "" {
		if seq, ok := parseSequence(latest, yearPrefix); ok {
			next = seq + 1
		} else {
			// unparseable tail (hand-entered number matching the prefix);
			// fall back to a count-based scan, gaps tolerated
			count, err := s.store.CountForYear(ctx, tenantID, year)
			if err != nil {
				return "", err
			}
			next = count + 1
		}
	}

	return fmt.Sprintf("%s%05d", yearPrefix, next), nil
}

func parseSequence(receipt, prefix string) (int64, bool) {
	tail := strings.TrimPrefix(receipt, prefix)
	if tail == receipt || tail == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
