package emtf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Output is the result of one event: tracks of all 12 sector processors in
// sector index order, and the hits they used when RetainHits is set.
type Output struct {
	Run    uint64          `json:"run"`
	Event  uint64          `json:"event"`
	Label  string          `json:"label"`
	Hits   []NormalizedHit `json:"hits,omitempty"`
	Tracks []Track         `json:"tracks"`
	Skips  []HitSkip       `json:"-"`
}

// TrackFinder runs the 12 sector processors on each event.
type TrackFinder struct {
	config     Configuration
	normalizer *Normalizer
	matcher    *Matcher
	canceller  *Canceller
	metrics    *Metrics

	mu sync.RWMutex
	pt *PtAssigner
}

// NewTrackFinder validates the configuration and builds the pipeline. The
// pt model is the built-in forest of PtAssignVersion, and the LUT file is
// loaded when ReadPtLUTFile is set.
func NewTrackFinder(config Configuration) (*TrackFinder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	tf := &TrackFinder{config: config}

	var err error
	if tf.normalizer, err = NewNormalizer(&tf.config); err != nil {
		return nil, err
	}
	if tf.matcher, err = NewMatcher(&tf.config); err != nil {
		return nil, err
	}
	tf.canceller = NewCanceller(&tf.config)

	forest, err := EmbeddedForest(config.PtAssignVersion, config.BDTXMLDir)
	if err != nil {
		return nil, err
	}
	var lut PtLUT
	if config.PtAssignEngine == PtEngineLUT && config.ReadPtLUTFile {
		if lut, err = LoadPtLUTFile(config.PtLUTFile, config.PtLUTVersion); err != nil {
			return nil, err
		}
	}
	if tf.pt, err = NewPtAssigner(&tf.config, forest, lut); err != nil {
		return nil, err
	}
	return tf, nil
}

func (tf *TrackFinder) Configuration() Configuration {
	return tf.config
}

// SetMetrics enables the prometheus counters. Call it before Process.
func (tf *TrackFinder) SetMetrics(m *Metrics) {
	tf.metrics = m
}

// UpdateConditions replaces the pt model, for instance at a run boundary.
// Events being processed finish with the previous model.
func (tf *TrackFinder) UpdateConditions(forest *Forest, lut PtLUT) error {
	pt, err := NewPtAssigner(&tf.config, forest, lut)
	if err != nil {
		return err
	}
	tf.mu.Lock()
	tf.pt = pt
	tf.mu.Unlock()
	logger.Info(fmt.Sprintf("pt model updated to %s (version %d)", forest.Dir, forest.Version), "trackfinder")
	return nil
}

func (tf *TrackFinder) assigner() *PtAssigner {
	tf.mu.RLock()
	defer tf.mu.RUnlock()
	return tf.pt
}

// collectInputs gathers the primitives of the enabled subsystems. Malformed
// primitives are reported here once per event and never reach the sector
// processors.
func (tf *TrackFinder) collectInputs(event *Event) ([]RawPrimitive, []HitSkip, error) {
	var prims []RawPrimitive
	var skips []HitSkip
	for _, s := range []Subsystem{DT, CSC, RPC, GEM, ME0} {
		if !tf.config.Enabled(s) {
			continue
		}
		tag := InputTag{Subsystem: s, Label: tf.config.InputLabel(s)}
		input, ok := event.Inputs[tag]
		if !ok {
			tf.metrics.missingInput(s)
			return nil, nil, &ErrMissingInput{Subsystem: s, Label: tag.Label, Event: event.ID}
		}
		for _, p := range input {
			if err := validatePrimitive(&p); err != nil {
				skips = append(skips, HitSkip{Primitive: p, Reason: err})
				continue
			}
			prims = append(prims, p)
		}
	}
	return prims, skips, nil
}

// Process runs all sector processors on event. On error the returned
// output is empty and the next event is not affected.
func (tf *TrackFinder) Process(ctx context.Context, event *Event) (*Output, error) {
	start := time.Now()
	output := &Output{Run: event.Run, Event: event.ID, Label: tf.config.OutputLabel}
	if err := ctx.Err(); err != nil {
		return output, err
	}

	prims, skips, err := tf.collectInputs(event)
	if err != nil {
		return output, err
	}
	pt := tf.assigner()

	var results [NumSectorProcessors]sectorResult
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(tf.config.NumWorkers)
	for endcap := MinEndcap; endcap <= MaxEndcap; endcap++ {
		for sector := MinSector; sector <= MaxSector; sector++ {
			sp := &sectorProcessor{
				endcap:     endcap,
				sector:     sector,
				config:     &tf.config,
				normalizer: tf.normalizer,
				matcher:    tf.matcher,
				canceller:  tf.canceller,
				pt:         pt,
			}
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("event %d: sector processor endcap %d sector %d recovered from panic: %v", event.ID, sp.endcap, sp.sector, r)
					}
				}()
				if err := ctx.Err(); err != nil {
					return err
				}
				results[sectorIndex(sp.endcap, sp.sector)] = sp.process(prims)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return output, err
	}

	var hits []NormalizedHit
	for _, result := range results {
		hits = append(hits, result.hits...)
		output.Tracks = append(output.Tracks, result.tracks...)
		skips = append(skips, result.skips...)
	}
	output.Skips = skips
	if tf.config.RetainHits {
		output.Hits = hits
	}

	if tf.config.Verbosity > 0 {
		for _, skip := range skips {
			logger.Error(fmt.Sprintf("event %d: skipped primitive: %v", event.ID, skip.Reason))
		}
	}
	tf.metrics.observe(output, hits, time.Since(start))
	return output, nil
}
