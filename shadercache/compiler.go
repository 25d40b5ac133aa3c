package shadercache

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// NagaCompiler compiles WGSL source to SPIR-V with the pure-Go naga
// translator. It is the ready-made Compiler for hosts whose transformed
// modules are WGSL (the WebGPU path); GLSL-dialect hosts use
// CommandCompiler or plug in their own toolchain.
func NagaCompiler(name, source string, _ gputypes.ShaderStage) ([]byte, error) {
	binary, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	return binary, nil
}

// stageExtensions maps shader stages to the reference compiler's stage
// names (which double as file extensions).
var stageExtensions = map[gputypes.ShaderStage]string{
	gputypes.ShaderStageVertex:   "vert",
	gputypes.ShaderStageFragment: "frag",
	gputypes.ShaderStageCompute:  "comp",
}

// CommandCompiler returns a Compiler that shells out to the OpenGL
// reference compiler (glslangValidator) to produce SPIR-V for the target
// environment. bin is the executable name or path; empty means
// "glslangValidator" from PATH.
//
// The child process is pure from the cache's perspective: same source in,
// same SPIR-V out. Its stderr/stdout become the diagnostic on failure.
func CommandCompiler(bin string) Compiler {
	if bin == "" {
		bin = "glslangValidator"
	}
	return func(name, source string, stage gputypes.ShaderStage) ([]byte, error) {
		ext, ok := stageExtensions[stage]
		if !ok {
			return nil, fmt.Errorf("unsupported stage %v", stage)
		}

		dir, err := os.MkdirTemp("", "shaderport-*")
		if err != nil {
			return nil, fmt.Errorf("temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		out := filepath.Join(dir, "out.spv")

		cmd := exec.Command(bin,
			"--stdin",
			"-V", // target the explicit-binding environment
			"-S", ext,
			"-o", out,
		)
		cmd.Stdin = bytes.NewBufferString(source)

		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("%s", bytes.TrimSpace(output))
		}
		binary, err := os.ReadFile(out)
		if err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
		return binary, nil
	}
}

// ShaderModuleDescriptor wraps the artifact for a HAL device's shader
// module creation, repacking the binary as SPIR-V words.
func (a *Artifact) ShaderModuleDescriptor() *hal.ShaderModuleDescriptor {
	return &hal.ShaderModuleDescriptor{
		Label: a.name,
		Source: hal.ShaderSource{
			SPIRV: a.Words(),
		},
	}
}
