package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

const (
	DefaultWorkers   = 4
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
)

// Opts tunes an import run.
type Opts struct {
	Workers   int     // Concurrent lookups (default 4, at most 10)
	RateLimit float64 // Lookups per second across all workers (default 5)
}

// OptsFromConfig reads worker and rate settings from the [youtube] config section.
func OptsFromConfig(cfg shared.YouTubeConfig) Opts {
	return Opts{Workers: cfg.Workers, RateLimit: cfg.RateLimit}
}

func (o Opts) normalized() Opts {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = DefaultRateLimit
	}
	return o
}

// Failure is an input that could not be imported.
type Failure struct {
	Index int    // Position in the input list
	Input string // The raw input
	Err   error
}

// Result of an import. Videos are in input order.
type Result struct {
	Videos     []models.Video
	Failures   []Failure
	Duplicates int // Inputs naming a video already earlier in the list
	Total      int // Number of inputs
}

// Engine resolves links into videos.
type Engine struct {
	lookup   services.VideoLookup
	playlist services.PlaylistSource
	logger   *log.Logger
}

// NewEngine creates an engine. playlist may be nil when playlists are not needed.
func NewEngine(lookup services.VideoLookup, playlist services.PlaylistSource, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{lookup: lookup, playlist: playlist, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type job struct {
	slot      int
	index     int
	input     string
	youtubeID string
}

type outcome struct {
	job
	video models.Video
	err   error
}

// ImportVideos resolves every input (a YouTube URL or bare id).
//
// Inputs that are not videos are recorded as failures wrapping [shared.ErrInvalidVideoURL]; repeated videos
// are counted and skipped. The returned error is non-nil only when ctx ends the run early, in which case
// the partial result is still returned.
func (e *Engine) ImportVideos(ctx context.Context, progress chan<- ProgressUpdate, inputs []string, opts Opts) (*Result, error) {
	if e.lookup == nil {
		return nil, fmt.Errorf("%w: video lookup not initialized", shared.ErrServiceUnavailable)
	}
	opts = opts.normalized()

	result := &Result{Total: len(inputs)}
	jobs := make([]job, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for i, input := range inputs {
		id, ok := services.ExtractVideoID(input)
		switch {
		case !ok:
			result.Failures = append(result.Failures, Failure{Index: i, Input: input, Err: shared.ErrInvalidVideoURL})
		case seen[id]:
			result.Duplicates++
		default:
			seen[id] = true
			jobs = append(jobs, job{slot: len(jobs), index: i, input: input, youtubeID: id})
		}
	}
	e.sendProgress(progress, parsedInputsUpdate(len(jobs), len(inputs)))

	slots := make([]*models.Video, len(jobs))
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	queue := make(chan job, len(jobs))
	results := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < min(opts.Workers, max(len(jobs), 1)); i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, limiter, queue, results)
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for out := range results {
		completed++
		if out.err != nil {
			result.Failures = append(result.Failures, Failure{Index: out.index, Input: out.input, Err: out.err})
			e.sendProgress(progress, lookupFailedUpdate(completed, len(jobs), out.input, out.err))
			continue
		}
		v := out.video
		slots[out.slot] = &v
		e.sendProgress(progress, lookupDoneUpdate(completed, len(jobs), v))
	}

	result.Videos = make([]models.Video, 0, len(jobs))
	for _, v := range slots {
		if v != nil {
			result.Videos = append(result.Videos, *v)
		}
	}
	slices.SortFunc(result.Failures, func(a, b Failure) int { return cmp.Compare(a.Index, b.Index) })

	e.logger.Debug("import finished", "videos", len(result.Videos), "failures", len(result.Failures), "duplicates", result.Duplicates)
	e.sendProgress(progress, doneUpdate(result))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) worker(ctx context.Context, wg *sync.WaitGroup, limiter *rate.Limiter, queue <-chan job, results chan<- outcome) {
	defer wg.Done()

	for j := range queue {
		if err := limiter.Wait(ctx); err != nil {
			results <- outcome{job: j, err: err}
			continue
		}

		v, err := e.lookup.Lookup(ctx, j.youtubeID)
		if err != nil {
			e.logger.Warn("lookup failed", "id", j.youtubeID, "error", err)
		}
		results <- outcome{job: j, video: v, err: err}
	}
}

// ImportPlaylist lists the playlist at url and imports its videos.
func (e *Engine) ImportPlaylist(ctx context.Context, progress chan<- ProgressUpdate, url string, opts Opts) (*Result, error) {
	if e.playlist == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchPlaylistUpdate(url))
	ids, err := e.playlist.VideoIDs(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: playlist %s has no videos", shared.ErrNotFound, url)
	}
	e.sendProgress(progress, foundPlaylistUpdate(len(ids)))

	return e.ImportVideos(ctx, progress, ids, opts)
}

// InvalidInputs returns the failures caused by inputs that were not videos.
func (r *Result) InvalidInputs() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if errors.Is(f.Err, shared.ErrInvalidVideoURL) {
			out = append(out, f)
		}
	}
	return out
}
