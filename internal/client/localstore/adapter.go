// Package localstore persists the whole client state as one JSON record in
// the quota-limited key-value store, pruning progressively when the record
// no longer fits.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/soullink/internal/client/repositories/kv"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/dmitrijs2005/soullink/internal/sanitize"
)

const (
	DefaultKeepMessages   = 30
	DefaultMediaThreshold = 1024
)

// Strategy is the pruning level a save ended up using.
type Strategy int

const (
	StrategyFull Strategy = iota
	StrategyTrimHistory
	StrategyStripMedia
)

func (s Strategy) String() string {
	switch s {
	case StrategyFull:
		return "full"
	case StrategyTrimHistory:
		return "trim_history"
	case StrategyStripMedia:
		return "strip_media"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

type SaveReport struct {
	Strategy Strategy
	Bytes    int
	// Degraded means nothing was written; the previous record, if any, is
	// still in place.
	Degraded bool
}

type Options struct {
	Key            string
	KeepMessages   int
	MediaThreshold int
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = common.LocalStateKey
	}
	if o.KeepMessages <= 0 {
		o.KeepMessages = DefaultKeepMessages
	}
	if o.MediaThreshold <= 0 {
		o.MediaThreshold = DefaultMediaThreshold
	}
	return o
}

type Adapter struct {
	repo   kv.Repository
	opts   Options
	logger logging.Logger
}

func NewAdapter(repo kv.Repository, opts Options, logger logging.Logger) *Adapter {
	return &Adapter{
		repo:   repo,
		opts:   opts.withDefaults(),
		logger: logging.OrNop(logger).With("module", "localstore"),
	}
}

// SaveLocal writes st. A quota failure is not an error: the adapter retries
// with a trimmed history, then with media stripped, and reports Degraded if
// even that does not fit. The caller's st is never modified.
func (a *Adapter) SaveLocal(ctx context.Context, st models.State) (SaveReport, error) {
	clean, err := sanitize.State(st)
	if err != nil {
		return SaveReport{}, fmt.Errorf("sanitize local state: %w", err)
	}

	attempts := []struct {
		strategy Strategy
		prune    func(models.State) models.State
	}{
		{StrategyFull, func(s models.State) models.State { return s }},
		{StrategyTrimHistory, func(s models.State) models.State {
			return TrimHistory(s, a.opts.KeepMessages)
		}},
		{StrategyStripMedia, func(s models.State) models.State {
			return StripMedia(TrimHistory(s, a.opts.KeepMessages), a.opts.MediaThreshold)
		}},
	}

	for _, at := range attempts {
		b, err := json.Marshal(at.prune(clean))
		if err != nil {
			return SaveReport{}, fmt.Errorf("marshal local state: %w", err)
		}

		err = a.repo.Set(ctx, a.opts.Key, b)
		if err == nil {
			if at.strategy != StrategyFull {
				a.logger.Warn(ctx, "local record pruned to fit quota", "strategy", at.strategy.String(), "bytes", len(b))
			}
			return SaveReport{Strategy: at.strategy, Bytes: len(b)}, nil
		}
		if !errors.Is(err, common.ErrQuotaExceeded) {
			return SaveReport{}, err
		}
	}

	a.logger.Warn(ctx, "local record does not fit quota even after pruning; previous record kept")
	return SaveReport{Strategy: StrategyStripMedia, Degraded: true}, nil
}

// LoadLocal returns nil, nil when there is no usable record: the key is
// missing or its contents do not decode.
func (a *Adapter) LoadLocal(ctx context.Context) (*models.State, error) {
	b, err := a.repo.Get(ctx, a.opts.Key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}

	st, err := sanitize.DecodeState(ctx, b, a.logger)
	if err != nil {
		a.logger.Warn(ctx, "local record is corrupt, ignoring", "err", err)
		return nil, nil
	}
	return &st, nil
}
