// Package poller runs polling cycles over the configured targets: each
// target is fetched, gated on its change token and, when changed, streamed
// through the record parser.
package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jacoelho/feedpoll/internal/config"
	"github.com/jacoelho/feedpoll/internal/exit"
	"github.com/jacoelho/feedpoll/internal/feed"
	"github.com/jacoelho/feedpoll/internal/formatter"
	"github.com/jacoelho/feedpoll/internal/formatter/stdout"
	"github.com/jacoelho/feedpoll/internal/gate"
	"github.com/jacoelho/feedpoll/internal/log"
	"github.com/jacoelho/feedpoll/internal/ratelimit"
	"github.com/jacoelho/feedpoll/internal/results"
	"github.com/jacoelho/feedpoll/internal/sanitizer"
	"github.com/jacoelho/feedpoll/internal/stream"
)

// watch is the long-lived state of one target. The gate keeps the change
// token between cycles; the parser is reused for every response.
type watch struct {
	target feed.Target
	gate   *gate.Gate
	parser *stream.Parser
}

// Poller polls targets sequentially.
type Poller struct {
	client    *feed.Client
	config    *config.Config
	limiter   *ratelimit.Limiter
	formatter formatter.Formatter
	records   formatter.RecordPrinter
	logger    log.Logger
	watches   []*watch
	secrets   []string
	salt      string

	now   func() time.Time
	newID func() string
}

// New creates a Poller with the provided configuration.
// If creation fails, returns nil poller and exit result.
func New(cfg *config.Config) (*Poller, *exit.Result) {
	client, err := cfg.HTTPClient()
	if err != nil {
		return nil, exit.Errorf("Error creating poller: %v\n", err)
	}

	log.SetLevel(cfg.EffectiveLogLevel())

	watches := make([]*watch, 0, len(cfg.Targets))
	secrets := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		watches = append(watches, &watch{
			target: t,
			gate:   gate.New(),
			parser: stream.NewParser(cfg.ParserOptions(t)),
		})
		secrets = append(secrets, t.APIKey)
	}

	return &Poller{
		client:    feed.NewClient(client, cfg.Host),
		config:    cfg,
		limiter:   ratelimit.New(cfg.Interval),
		formatter: stdout.New(),
		records:   stdout.NewRecordPrinter(os.Stdout, cfg.Format),
		logger:    log.Default,
		watches:   watches,
		secrets:   secrets,
		salt:      uuid.NewString(),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// SetOutput redirects records and summaries.
func (p *Poller) SetOutput(w io.Writer) {
	p.formatter = stdout.NewWithWriter(w)
	p.records = stdout.NewRecordPrinter(w, p.config.Format)
}

func (p *Poller) SetLogger(l log.Logger) {
	p.logger = l
}

// Run polls according to the configuration and returns the exit code.
func (p *Poller) Run(ctx context.Context) int {
	p.logger.Debugw("polling", "targets", len(p.watches), "interval", p.limiter.Interval(), "repeat", p.config.Repeat)

	if p.config.Repeat < 0 {
		return p.runInfiniteLoop(ctx)
	}
	return p.runFiniteLoop(ctx)
}

// runInfiniteLoop prints each cycle as it completes until ctx is cancelled.
func (p *Poller) runInfiniteLoop(ctx context.Context) int {
	for cycle := 1; ; cycle++ {
		summary, err := p.PollOnce(ctx)
		if err != nil {
			p.logger.Warnw("interrupted", "completed_cycles", cycle-1)
			return exit.CodeFailure
		}

		if err := p.formatter.Format(summary); err != nil {
			p.logger.Errorf("Error formatting results: %v", err)
		}
	}
}

// runFiniteLoop runs Repeat+1 cycles and prints them together.
func (p *Poller) runFiniteLoop(ctx context.Context) int {
	var summaries []*results.Summary
	total := p.config.Repeat + 1

	for cycle := 1; cycle <= total; cycle++ {
		if total > 1 {
			p.logger.Debugf("cycle %d of %d", cycle, total)
		}

		summary, err := p.PollOnce(ctx)
		if err != nil {
			p.logger.Warnw("interrupted", "completed_cycles", cycle-1, "cycles", total)
			return exit.CodeFailure
		}
		summaries = append(summaries, summary)
	}

	if err := p.formatter.Format(summaries...); err != nil {
		p.logger.Errorf("Error formatting results: %v", err)
	}
	return exit.CodeOK
}

// PollOnce runs one cycle over every target. Target failures are recorded
// in the summary; only cancellation of ctx is returned as an error.
func (p *Poller) PollOnce(ctx context.Context) (*results.Summary, error) {
	s := results.NewSummary(p.newID(), len(p.watches))
	start := p.now()

	for _, w := range p.watches {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		s.Add(p.poll(ctx, s.CycleID, w))

		if err := ctx.Err(); err != nil {
			return s, err
		}
	}

	s.SetTotalDuration(p.now().Sub(start))
	return s, nil
}

// poll fetches one target and, when its change token moved, parses the
// body and prints its records.
func (p *Poller) poll(ctx context.Context, cycleID string, w *watch) *results.TargetResultBuilder {
	label := w.target.Label()
	b := results.NewTargetResultBuilder(label)
	start := p.now()
	defer func() { b.WithDuration(p.now().Sub(start)) }()

	fail := func(stage string, err error) *results.TargetResultBuilder {
		p.logger.Warnw("poll failed", "cycle", cycleID, "target", label, "stage", stage, "error", err)
		return b.WithError(err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return b.WithError(err)
	}

	resp, err := p.fetch(ctx, w.target)
	if err != nil {
		return fail("fetch", err)
	}
	defer resp.Body.Close()

	token, proceed, err := w.gate.Check(resp, w.target.Single())
	switch {
	case gate.IsNotFound(err):
		p.logger.Debugw("no change token", "cycle", cycleID, "target", label, "header", gate.HeaderName(w.target.Single()))
	case err != nil:
		p.logger.Warnw("change token unreadable", "cycle", cycleID, "target", label, "error", err)
	}
	b.WithToken(token)

	if !proceed {
		p.logger.Infow("not updated since last read", "cycle", cycleID, "target", label, "token", token)
		return b.WithSkipped(true)
	}

	count := 0
	printer := p.records.Handler(label)
	handler := stream.HandlerFunc(func(r stream.Record) {
		count++
		printer.HandleRecord(r)
	})

	src := stream.NewReaderSource(resp.Body)
	err = w.parser.Parse(src, handler)
	// Closing the body releases a read still blocked after a timeout.
	resp.Body.Close()
	src.Close()

	b.WithRecords(count)
	if err != nil {
		// The token was stored before the body was read; forget it so the
		// next cycle reads the document again.
		w.gate.Reset()
		return fail("parse", err)
	}
	if err := printer.Err(); err != nil {
		return fail("output", fmt.Errorf("failed to write records: %w", err))
	}

	p.logger.Debugw("parsed", "cycle", cycleID, "target", label, "records", count)
	return b
}

// fetch requests t; in debug mode the request and response head are logged
// with API keys redacted.
func (p *Poller) fetch(ctx context.Context, t feed.Target) (*http.Response, error) {
	if !p.config.Debug {
		return p.client.Fetch(ctx, t)
	}

	req, err := p.client.NewRequest(ctx, t)
	if err != nil {
		return nil, err
	}
	p.debugRequest(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	p.debugResponse(resp)
	return resp, nil
}

func (p *Poller) debugRequest(req *http.Request) {
	dump, err := sanitizer.DumpRequest(req, p.secrets, p.salt)
	if err != nil {
		p.logger.Debugf("Error dumping request: %v", err)
		return
	}
	p.logger.Debugf("REQUEST:\n%s", dump)
}

// debugResponse logs only the head; the body is left for the parser.
func (p *Poller) debugResponse(resp *http.Response) {
	dump, err := sanitizer.DumpResponseHead(resp, p.secrets, p.salt)
	if err != nil {
		p.logger.Debugf("Error dumping response: %v", err)
		return
	}
	p.logger.Debugf("RESPONSE:\n%s", dump)
}
