package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"pyproj/internal/config"
)

// ErrPipelineClosed is returned by Configure after Shutdown.
var ErrPipelineClosed = errors.New("logging: pipeline has been shut down")

type pipelineState int

const (
	stateNew pipelineState = iota
	stateConfigured
	stateClosed
)

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
	lastResort    io.Writer
	streams       Streams
	lookup        config.LookupFunc
}

// WithMeterProvider sets the MeterProvider used for pipeline counters. The
// global provider is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = provider
	}
}

// WithLastResort redirects pipeline diagnostics (drops, sink failures,
// shutdown timeouts). Defaults to stderr.
func WithLastResort(w io.Writer) Option {
	return func(o *options) {
		o.lastResort = w
	}
}

// WithStreams replaces the writers behind stdout and stderr stream sinks.
func WithStreams(streams Streams) Option {
	return func(o *options) {
		o.streams = streams
	}
}

// WithEnv replaces the environment lookup used for configuration
// overrides.
func WithEnv(lookup config.LookupFunc) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// Pipeline owns the logger registry, the dispatch queue, and the listener.
// The host creates one, calls Configure once at start and Shutdown once at
// exit.
type Pipeline struct {
	opts      options
	levels    *Levels
	diag      *lastResort
	sessionID string

	nodesMu sync.RWMutex
	nodes   map[string]*loggerNode

	mu       sync.Mutex
	state    pipelineState
	root     string
	queue    *Queue
	listener *Listener
	metrics  *pipelineMetrics
}

// NewPipeline creates an unconfigured pipeline. Loggers can be obtained
// right away; their records go nowhere until Configure wires the sinks.
func NewPipeline(opts ...Option) *Pipeline {
	o := options{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		opts:      o,
		levels:    NewLevels(LevelInfo),
		diag:      newLastResort(o.lastResort),
		sessionID: uuid.NewString(),
		nodes:     make(map[string]*loggerNode),
	}
}

// SessionID identifies this pipeline instance.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Root returns the configured application root logger name, or "" before
// Configure.
func (p *Pipeline) Root() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

// Dropped returns the number of records the dispatch queue rejected.
func (p *Pipeline) Dropped() uint64 {
	p.mu.Lock()
	q := p.queue
	p.mu.Unlock()
	if q == nil {
		return 0
	}
	return q.Dropped()
}

// Configure wires sinks, queue, and listener from cfg. A nil cfg loads the
// default configuration. Environment overrides are applied to a copy of cfg
// before any sink is built. Only the first successful call has an effect.
func (p *Pipeline) Configure(cfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateConfigured:
		return nil
	case stateClosed:
		return ErrPipelineClosed
	}

	if cfg == nil {
		loaded, _, _, err := config.Load("")
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = cfg.Clone()
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(p.opts.lookup); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	metrics, err := newPipelineMetrics(p.opts.meterProvider)
	if err != nil {
		return err
	}

	def, err := ParseLevel(cfg.DefaultLevel)
	if err != nil {
		return err
	}
	rootName, rootCfg, hasRoot := cfg.RootLogger()

	var sinks []*Sink
	if hasRoot {
		builder := sinkBuilder{cfg: cfg, streams: p.opts.streams, sessionID: p.sessionID, metrics: metrics}
		if sinks, err = builder.build(rootCfg.Handlers); err != nil {
			return err
		}
	}

	p.levels.SetDefault(def)
	for _, name := range sortedLoggerNames(cfg.Loggers) {
		lg := cfg.Loggers[name]
		if lg.Level != "" {
			level, err := ParseLevel(lg.Level)
			if err != nil {
				closeAll(sinks)
				return err
			}
			p.levels.Set(name, level)
		}
		p.node(name).propagate.Store(lg.PropagateEnabled())
	}

	queue := NewQueue(cfg.Queue.Capacity)
	queue.metrics = metrics
	queue.diag = p.diag

	listener := NewListener(queue, sinks)
	listener.metrics = metrics
	listener.diag = p.diag
	if err := listener.Start(); err != nil {
		closeAll(sinks)
		return err
	}

	if hasRoot {
		p.node(rootName).setHandlers([]recordHandler{&queueHandler{
			filter: NamespaceFilter(rootName),
			queue:  queue,
		}})
	}

	p.root = rootName
	p.queue = queue
	p.listener = listener
	p.metrics = metrics
	p.state = stateConfigured
	return nil
}

// Shutdown stops accepting records and waits for the listener to deliver
// everything queued so far, bounded by ctx. Records emitted afterwards are
// dropped and counted. Calling Shutdown again is a no-op.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	prev := p.state
	p.state = stateClosed
	listener := p.listener
	p.mu.Unlock()

	if prev != stateConfigured {
		return nil
	}
	return listener.Stop(ctx)
}

// Logger returns the logger registered under name, creating it on first use.
func (p *Pipeline) Logger(name string) *Logger {
	return &Logger{p: p, node: p.node(name)}
}

// SetLevel gives name an explicit level.
func (p *Pipeline) SetLevel(name string, level Level) {
	p.levels.Set(name, level)
}

// ClearLevel removes the explicit level of name.
func (p *Pipeline) ClearLevel(name string) {
	p.levels.Clear(name)
}

// SetDefaultLevel replaces the level used when no ancestor sets one.
func (p *Pipeline) SetDefaultLevel(level Level) {
	p.levels.SetDefault(level)
}

// EffectiveLevel resolves the threshold enforced for name.
func (p *Pipeline) EffectiveLevel(name string) Level {
	return p.levels.Effective(name)
}

func sortedLoggerNames(loggers map[string]config.Logger) []string {
	names := make([]string, 0, len(loggers))
	for name := range loggers {
		names = append(names, name)
	}
	// Parents before children keeps node creation order stable.
	sort.Slice(names, func(i, j int) bool {
		di, dj := strings.Count(names[i], "."), strings.Count(names[j], ".")
		if di != dj {
			return di < dj
		}
		return names[i] < names[j]
	})
	return names
}

func closeAll(sinks []*Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}

// loggerNode is the registry entry shared by every Logger with the same
// name.
type loggerNode struct {
	name      string
	parent    *loggerNode
	propagate atomic.Bool
	handlers  atomic.Pointer[[]recordHandler]
}

func (n *loggerNode) setHandlers(handlers []recordHandler) {
	n.handlers.Store(&handlers)
}

func (n *loggerNode) handlerList() []recordHandler {
	if h := n.handlers.Load(); h != nil {
		return *h
	}
	return nil
}

func (p *Pipeline) node(name string) *loggerNode {
	p.nodesMu.RLock()
	n, ok := p.nodes[name]
	p.nodesMu.RUnlock()
	if ok {
		return n
	}

	var parent *loggerNode
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		parent = p.node(name[:idx])
	}

	p.nodesMu.Lock()
	defer p.nodesMu.Unlock()
	if n, ok := p.nodes[name]; ok {
		return n
	}
	n = &loggerNode{name: name, parent: parent}
	n.propagate.Store(true)
	p.nodes[name] = n
	return n
}

// recordHandler receives records that climbed to the node it is attached to.
type recordHandler interface {
	handle(rec *Record)
}

// queueHandler is the only handler the pipeline installs: it sits on the
// application root logger and moves records onto the dispatch queue.
type queueHandler struct {
	filter Filter
	queue  *Queue
}

func (h *queueHandler) handle(rec *Record) {
	if !h.filter(rec) {
		return
	}
	h.queue.Enqueue(rec)
}

// callHandlers walks from node towards the top of the hierarchy, stopping
// after the first node that does not propagate.
func (p *Pipeline) callHandlers(node *loggerNode, rec *Record) {
	found := false
	for n := node; n != nil; n = n.parent {
		for _, h := range n.handlerList() {
			found = true
			h.handle(rec)
		}
		if !n.propagate.Load() {
			break
		}
	}
	if !found && rec.Level >= LevelWarning {
		p.diag.printf("no handlers for logger %q: %s %s", rec.LoggerName, rec.Level, rec.Message())
	}
}
