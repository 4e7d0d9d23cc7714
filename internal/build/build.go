// Package build assembles the engine settings and items artifacts.
//
// Every artifact of an invocation is loaded, validated, stamped, encoded and
// checked before the first file is written, so a failing item catalog never
// leaves a half-updated build directory behind. The build path runs the same
// validator as the editor but treats any diagnostic as fatal.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gamecfg/internal/config"
	"gamecfg/internal/data/artifact"
	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
	"gamecfg/internal/data/stamp"
	"gamecfg/internal/data/validate"
	"gamecfg/internal/data/value"
	"gamecfg/internal/persistence/indexdb"
	"gamecfg/internal/persistence/journal"
)

// Index receives every written artifact. Failures are logged, not fatal.
type Index interface {
	UpsertArtifact(ctx context.Context, r indexdb.ArtifactRow) error
}

// Journal receives one entry per written artifact. Failures are logged.
type Journal interface {
	Append(e journal.Entry) error
}

// Publisher mirrors written artifacts to remote storage. Failures are logged.
type Publisher interface {
	Publish(ctx context.Context, version, name string, body []byte) error
}

type Builder struct {
	cfg     config.Config
	version string
	log     *zap.Logger
	index   Index
	journal Journal
	publish Publisher
	now     func() time.Time
	newID   func() string
}

type Option func(*Builder)

func WithIndex(i Index) Option         { return func(b *Builder) { b.index = i } }
func WithJournal(j Journal) Option     { return func(b *Builder) { b.journal = j } }
func WithPublisher(p Publisher) Option { return func(b *Builder) { b.publish = p } }
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithVersion overrides stamp.Version.
func WithVersion(v string) Option { return func(b *Builder) { b.version = v } }

func New(cfg config.Config, logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		cfg:     cfg,
		version: stamp.Version,
		log:     logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

type Result struct {
	BuildID string
	Kind    stamp.Kind
	Version string
	Source  string
	Path    string
	Digest  string
	Count   int
}

type plan struct {
	source   string
	dest     string
	artifact stamp.Artifact
	encoded  []byte
}

func (b *Builder) BuildEngineSettings(ctx context.Context) (Result, error) {
	return b.one(ctx, b.prepareSettings)
}

func (b *Builder) BuildItems(ctx context.Context) (Result, error) {
	return b.one(ctx, b.prepareItems)
}

// BuildAll builds settings then items. Nothing is written unless both
// prepare cleanly.
func (b *Builder) BuildAll(ctx context.Context) ([]Result, error) {
	settings, err := b.prepareSettings(ctx)
	if err != nil {
		return nil, err
	}
	items, err := b.prepareItems(ctx)
	if err != nil {
		return nil, err
	}
	return b.commit(ctx, []plan{settings, items})
}

func (b *Builder) one(ctx context.Context, prepare func(context.Context) (plan, error)) (Result, error) {
	p, err := prepare(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := b.commit(ctx, []plan{p})
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

func (b *Builder) prepareSettings(ctx context.Context) (plan, error) {
	if err := ctx.Err(); err != nil {
		return plan{}, err
	}
	src := b.cfg.SettingsPath()
	doc, err := loader.Load(src)
	if err != nil {
		return plan{}, fmt.Errorf("load settings: %w", err)
	}
	settings, err := records.DecodeSettings(doc)
	if err != nil {
		return plan{}, fmt.Errorf("%s: %w", src, err)
	}
	b.log.Debug("settings loaded", zap.String("path", src), zap.Int("fields", settings.Len()))
	return b.encode(src, b.cfg.SettingsOutput(), stamp.Settings(settings, b.version))
}

func (b *Builder) prepareItems(ctx context.Context) (plan, error) {
	if err := ctx.Err(); err != nil {
		return plan{}, err
	}
	src := b.cfg.ItemsPath()
	raw, err := LoadItems(src)
	if err != nil {
		return plan{}, err
	}
	diags := validate.Items(raw)
	if err := diags.Err(); err != nil {
		for _, d := range diags {
			b.log.Warn("item rejected",
				zap.String("path", src),
				zap.Int("index", d.Index),
				zap.String("rule", string(d.Rule)),
				zap.String("message", d.Message))
		}
		return plan{}, fmt.Errorf("%s: %w", src, err)
	}
	items, err := records.DecodeItems(raw)
	if err != nil {
		return plan{}, fmt.Errorf("%s: %w", src, err)
	}
	b.log.Debug("items loaded", zap.String("path", src), zap.Int("items", len(items)))
	return b.encode(src, b.cfg.ItemsOutput(), stamp.Items(items, b.version))
}

func (b *Builder) encode(src, dest string, a stamp.Artifact) (plan, error) {
	enc, err := artifact.Encode(a)
	if err != nil {
		return plan{}, err
	}
	if err := artifact.Check(a.Kind(), enc); err != nil {
		return plan{}, err
	}
	return plan{source: src, dest: dest, artifact: a, encoded: enc}, nil
}

func (b *Builder) commit(ctx context.Context, plans []plan) ([]Result, error) {
	buildID := b.newID()
	out := make([]Result, 0, len(plans))
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := artifact.WriteFile(p.dest, p.encoded); err != nil {
			return out, err
		}
		res := Result{
			BuildID: buildID,
			Kind:    p.artifact.Kind(),
			Version: p.artifact.Version(),
			Source:  p.source,
			Path:    p.dest,
			Digest:  artifact.Digest(p.encoded),
			Count:   p.artifact.Count(),
		}
		b.log.Info("artifact written",
			zap.String("build_id", buildID),
			zap.String("artifact", string(res.Kind)),
			zap.String("path", res.Path),
			zap.String("config_version", res.Version),
			zap.String("digest", res.Digest),
			zap.Int("count", res.Count))
		b.record(ctx, res, p.encoded)
		out = append(out, res)
	}
	return out, nil
}

func (b *Builder) record(ctx context.Context, res Result, encoded []byte) {
	at := b.now().UTC()
	if b.index != nil {
		err := b.index.UpsertArtifact(ctx, indexdb.ArtifactRow{
			Name:      string(res.Kind),
			Kind:      string(res.Kind),
			Version:   res.Version,
			Digest:    res.Digest,
			JSON:      encoded,
			BuildID:   res.BuildID,
			Source:    res.Source,
			UpdatedAt: at,
		})
		if err != nil {
			b.log.Warn("index artifact", zap.String("artifact", string(res.Kind)), zap.Error(err))
		}
	}
	if b.journal != nil {
		err := b.journal.Append(journal.Entry{
			BuildID:  res.BuildID,
			Artifact: string(res.Kind),
			Version:  res.Version,
			Source:   res.Source,
			Path:     res.Path,
			Digest:   res.Digest,
			Count:    res.Count,
			BuiltAt:  at,
		})
		if err != nil {
			b.log.Warn("journal artifact", zap.String("artifact", string(res.Kind)), zap.Error(err))
		}
	}
	if b.publish != nil {
		if err := b.publish.Publish(ctx, res.Version, filepath.Base(res.Path), encoded); err != nil {
			b.log.Warn("publish artifact", zap.String("artifact", string(res.Kind)), zap.Error(err))
		}
	}
}

// LoadItems reads an items document and returns its records unvalidated.
func LoadItems(path string) ([]value.Value, error) {
	doc, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	raw, err := records.ItemBatch(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}
