package shaderport

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderport/glsl"
	"github.com/gogpu/shaderport/internal/cache"
	"github.com/gogpu/shaderport/layout"
	"github.com/gogpu/shaderport/shadercache"
	"github.com/gogpu/shaderport/transform"
)

// ErrNoSources is returned by Port when called with no stage sources.
var ErrNoSources = errors.New("shaderport: no stage sources")

// StageSource is one stage of a shader program as authored by the pack.
type StageSource struct {
	// Name identifies the stage in logs and compile errors, usually the
	// pack-relative file name.
	Name string

	// Stage is the pipeline stage the source targets.
	Stage gputypes.ShaderStage

	// Source is the unmodified GLSL text.
	Source string
}

// Stage is one ported stage: the rewritten source plus the sampler
// binding indices assigned to its opaque uniforms.
type Stage struct {
	Name     string
	Stage    gputypes.ShaderStage
	Source   string
	Samplers map[string]int
}

// Program is the result of porting one shader program: the merged uniform
// interface, its buffer layout, the opaque uniforms left outside the
// block, and the rewritten stages.
type Program struct {
	Uniforms *glsl.FieldList
	Layout   *layout.Layout
	Opaques  []glsl.Opaque
	Stages   []Stage
}

// Stage returns the ported stage targeting the given pipeline stage.
func (p *Program) Stage(stage gputypes.ShaderStage) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return Stage{}, false
}

// NewUniformBuffer allocates a CPU staging buffer matching the program's
// uniform block layout.
func (p *Program) NewUniformBuffer() *layout.Buffer {
	return layout.NewBuffer(p.Layout)
}

// Options configure a Porter.
type Options struct {
	// Transform configures the source rewriter (version directive, block
	// name, depth-range fix).
	Transform transform.Options

	// Attributes maps known vertex input names to locations. Inputs not
	// listed here get sequential fallback locations.
	Attributes map[string]int

	// MaxBlockSize caps the merged uniform block, in bytes. Zero means
	// [layout.DefaultMaxBlockSize].
	MaxBlockSize int

	// Compiler translates rewritten GLSL to the target binary form,
	// typically [shadercache.CommandCompiler]. Port itself never compiles;
	// with no compiler configured, Compile fails with
	// [shadercache.ErrNoCompiler]. [shadercache.NagaCompiler] is NOT a
	// valid choice here: it consumes WGSL, not the GLSL Port emits, and
	// exists for hosts feeding WGSL straight into a [shadercache.Cache].
	Compiler shadercache.Compiler

	// ProgramCacheSize is the per-shard capacity of the ported-program
	// cache. Zero picks a small default.
	ProgramCacheSize int

	// Dump, when set, receives every rewritten stage before binding
	// assignment results are returned. Intended for debugging pack
	// incompatibilities; the callback must not modify the source.
	Dump func(name string, stage gputypes.ShaderStage, source string)
}

// Porter adapts third-party shader pack sources to the stricter target
// API: it scans and merges uniform interfaces, computes the std140 block
// layout, rewrites each stage, assigns bindings, and compiles on demand.
//
// Ported programs and rewritten stages are memoized, so re-porting an
// unchanged pack is cheap. Porter is safe for concurrent use.
type Porter struct {
	opts     Options
	rewriter *transform.Rewriter
	shaders  *shadercache.Cache
	programs *cache.ShardedCache[uint64, *Program]
	rewrites *cache.Cache[uint64, string]
}

// New creates a Porter.
func New(opts Options) *Porter {
	if opts.MaxBlockSize == 0 {
		opts.MaxBlockSize = layout.DefaultMaxBlockSize
	}
	size := opts.ProgramCacheSize
	if size <= 0 {
		size = 64
	}
	return &Porter{
		opts:     opts,
		rewriter: transform.New(opts.Transform),
		shaders:  shadercache.New(opts.Compiler),
		programs: cache.NewSharded[uint64, *Program](size, cache.Uint64Hasher),
		rewrites: cache.New[uint64, string](size * 4),
	}
}

// Port adapts one shader program. The sources form a single program; the
// uniform declarations of all stages are merged into one shared block and
// every stage is rewritten against that merged interface.
//
// Results are memoized by source content: porting the same sources again
// returns the cached Program.
func (p *Porter) Port(sources ...StageSource) (*Program, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	key := programKey(sources)
	if prog, ok := p.programs.Get(key); ok {
		return prog, nil
	}
	prog, err := p.port(sources)
	if err != nil {
		return nil, err
	}
	p.programs.Set(key, prog)
	return prog, nil
}

func (p *Porter) port(sources []StageSource) (*Program, error) {
	lists := make([]*glsl.FieldList, 0, len(sources))
	var opaques []glsl.Opaque
	seen := make(map[string]bool)
	for _, src := range sources {
		fields, ops := glsl.Scan(src.Source)
		lists = append(lists, fields)
		for _, op := range ops {
			if seen[op.Name] {
				continue
			}
			seen[op.Name] = true
			opaques = append(opaques, op)
		}
	}

	merged := glsl.Merge(lists...)
	lay, err := layout.ComputeWithLimit(merged, p.opts.MaxBlockSize)
	if err != nil {
		return nil, fmt.Errorf("port %s: %w", sources[0].Name, err)
	}

	fieldsKey := fieldListKey(merged)
	stages := make([]Stage, 0, len(sources))
	for _, src := range sources {
		rewritten := p.rewrites.GetOrCreate(stageKey(src, fieldsKey), func() string {
			return p.rewriter.Rewrite(src.Source, merged, src.Stage)
		})
		bound, samplers := transform.AssignBindings(rewritten, src.Stage, p.opts.Attributes)
		if p.opts.Dump != nil {
			p.opts.Dump(src.Name, src.Stage, bound)
		}
		stages = append(stages, Stage{
			Name:     src.Name,
			Stage:    src.Stage,
			Source:   bound,
			Samplers: samplers,
		})
		slogger().Debug("stage ported",
			"name", src.Name,
			"stage", src.Stage,
			"uniforms", merged.Len(),
			"blockSize", lay.TotalSize())
	}

	return &Program{
		Uniforms: merged,
		Layout:   lay,
		Opaques:  opaques,
		Stages:   stages,
	}, nil
}

// Compile compiles every stage of a ported program through the shared
// compilation cache. A stage that fails returns the annotated
// [shadercache.Error]; stages compiled earlier in the same call stay
// cached.
func (p *Porter) Compile(prog *Program) ([]*shadercache.Artifact, error) {
	artifacts := make([]*shadercache.Artifact, 0, len(prog.Stages))
	for _, s := range prog.Stages {
		art, err := p.shaders.Compile(s.Name, s.Source, s.Stage)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// Shaders exposes the compilation cache for stats and manual lookups.
func (p *Porter) Shaders() *shadercache.Cache {
	return p.shaders
}

// programKey hashes the full source content of a program's stages.
func programKey(sources []StageSource) uint64 {
	h := fnv.New64a()
	for _, src := range sources {
		_, _ = h.Write([]byte(src.Name))
		_, _ = h.Write([]byte{0, byte(src.Stage)})
		_, _ = h.Write([]byte(src.Source))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// fieldListKey hashes the merged uniform interface a stage is rewritten
// against. Rewrites are shared across programs only when both the stage
// source and the merged interface match.
func fieldListKey(fields *glsl.FieldList) uint64 {
	h := fnv.New64a()
	for _, f := range fields.Fields() {
		_, _ = h.Write([]byte(f.Declaration()))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func stageKey(src StageSource, fieldsKey uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(src.Source))
	_, _ = h.Write([]byte{byte(src.Stage)})
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(fieldsKey >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
