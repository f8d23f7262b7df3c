// Package dualwrite performs one logical change that spans two stored
// documents without a shared transaction.
//
// One side of every pair is authoritative. It is written first; if it fails
// nothing else happens. The mirrored side is written second and a failure
// there is logged, not returned: readers compare the two sides and call
// Repair to bring the mirror back in line.
package dualwrite

import (
	"context"
	"log/slog"
)

// Write applies one side of the change.
type Write func(ctx context.Context) error

// Pair is a change to an authoritative document and its mirror.
type Pair struct {
	// Name identifies the pair in logs, e.g. "favorite".
	Name string
	// Primary writes the authoritative side.
	Primary Write
	// Secondary writes the mirrored side.
	Secondary Write
}

// Result reports how far a Pair got.
type Result struct {
	// MirrorErr is set when the authoritative write succeeded but the
	// mirror did not. The pair is then asymmetric until repaired.
	MirrorErr error
}

// Consistent reports whether both sides were written.
func (r Result) Consistent() bool {
	return r.MirrorErr == nil
}

// Do runs the primary write and then the secondary write. The returned
// error is the primary's; a secondary failure is logged and reported only in
// the Result.
func (p Pair) Do(ctx context.Context, logger *slog.Logger) (Result, error) {
	if err := p.Primary(ctx); err != nil {
		return Result{}, err
	}
	if p.Secondary == nil {
		return Result{}, nil
	}
	if err := p.Secondary(ctx); err != nil {
		if logger != nil {
			logger.Warn("dual write left mirror behind",
				"pair", p.Name,
				"error", err,
			)
		}
		return Result{MirrorErr: err}, nil
	}
	return Result{}, nil
}

// Repair applies fix when a reader finds the mirror out of step with the
// authoritative side. It is best effort: failures are logged and the next
// read will try again.
func Repair(ctx context.Context, logger *slog.Logger, name string, inSync bool, fix Write) bool {
	if inSync || fix == nil {
		return false
	}
	if err := fix(ctx); err != nil {
		if logger != nil {
			logger.Warn("read repair failed", "pair", name, "error", err)
		}
		return false
	}
	if logger != nil {
		logger.Debug("read repair applied", "pair", name)
	}
	return true
}
