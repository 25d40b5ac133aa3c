// Package shaderport adapts third-party GLSL shader packs, written
// against a permissive legacy API, to a stricter explicit-binding
// target API.
//
// Legacy packs declare loose uniforms per stage, rely on driver-side
// location assignment, and lean on fixed-function conveniences such as
// shadow samplers. The target API wants a single std140 uniform block
// with explicit offsets, explicit binding and location decorations, and
// no depth-compare sampler types. Porting a pack means closing that gap
// mechanically, per program, without touching the pack on disk.
//
// The pipeline runs in fixed order for each program:
//
//  1. [glsl.Scan] extracts the loose uniform declarations of every stage
//     and classifies opaque (sampler) uniforms.
//  2. [glsl.Merge] folds the per-stage interfaces into one, injecting the
//     baseline uniforms every pack may reference.
//  3. [layout.Compute] lays the merged interface out std140-style, giving
//     every field its byte offset in the shared block.
//  4. [transform.Rewriter] rewrites each stage: canonical version
//     directive, loose declarations replaced by the shared block,
//     builtin renames, shadow sampler emulation.
//  5. [transform.AssignBindings] decorates the block, the samplers, and
//     the vertex inputs with explicit bindings and locations.
//  6. [shadercache.Cache] compiles the rewritten stages to SPIR-V,
//     content-addressed so unchanged sources never recompile.
//
// [Porter] drives the pipeline and memoizes ported programs. The
// [fbcache] package is the render-side counterpart: it caches
// framebuffer objects by attachment identity so ported passes sharing
// physical targets do not thrash pass restarts.
//
// The package produces no log output by default; see [SetLogger].
package shaderport
