package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeshinnorbu/claw/internal/clock"
	"github.com/yeshinnorbu/claw/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ExtractorParams struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Client      *Client
	Checkpoints *CheckpointStore
	Clock       clock.Clock
}

// Extractor runs the extraction pass: every registered endpoint is fetched
// and persisted as a checkpoint. It touches only the source API and the
// checkpoint directory, never the destination store, so extraction works
// with the destination offline.
type Extractor struct {
	cfg         config.Config
	log         *zap.Logger
	client      *Client
	checkpoints *CheckpointStore
	clock       clock.Clock
}

func NewExtractor(p ExtractorParams) *Extractor {
	return &Extractor{
		cfg:         p.Cfg,
		log:         p.Log.Named("source.extractor"),
		client:      p.Client,
		checkpoints: p.Checkpoints,
		clock:       p.Clock,
	}
}

// Run fetches all endpoints concurrently under the configured worker
// limit; pagination within one endpoint stays sequential. An endpoint that
// fails mid-pagination keeps its partial pages and does not affect the
// others. Only checkpoint write failures make Run return an error.
func (e *Extractor) Run(ctx context.Context) error {
	sem := make(chan struct{}, e.cfg.FetchWorkers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var saveErrs []error

	for _, ep := range Endpoints() {
		wg.Add(1)
		go func(ep Endpoint) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := e.client.FetchAll(ctx, ep)
			if err != nil {
				e.log.Warn("endpoint extraction incomplete",
					zap.String("endpoint", ep.Name),
					zap.Int("records_kept", len(records)),
					zap.Error(err),
				)
			}

			cp := Checkpoint{
				Endpoint:    ep.Name,
				RetrievedAt: e.clock.Now(),
				Records:     records,
			}
			if saveErr := e.checkpoints.Save(cp); saveErr != nil {
				mu.Lock()
				saveErrs = append(saveErrs, saveErr)
				mu.Unlock()
				return
			}
			e.log.Info("checkpoint written",
				zap.String("endpoint", ep.Name),
				zap.Int("records", len(records)),
			)
		}(ep)
	}
	wg.Wait()

	if len(saveErrs) > 0 {
		return fmt.Errorf("extraction finished with %d checkpoint failures: %w", len(saveErrs), saveErrs[0])
	}
	return nil
}
