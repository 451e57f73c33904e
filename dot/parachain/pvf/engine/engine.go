// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	entryPoint = "validate_block"
	heapBase   = "__heap_base"
	pageSize   = 65536
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

var (
	// ErrTimedOut is returned when the execution did not finish before the context deadline.
	ErrTimedOut = errors.New("execution timed out")
	// ErrExecution is returned when the validation function failed.
	ErrExecution = errors.New("execution failed")
)

// RuntimeConfig is shared by every runtime created by the engine, so that
// compiled code is cached across executions of the same artifact.
var RuntimeConfig = wazero.NewRuntimeConfig().
	WithCompilationCache(wazero.NewCompilationCache()).
	WithCloseOnContextDone(true)

// Engine prepares and executes validation code in the current process.
// It is used by the worker processes.
type Engine struct{}

// New returns a new engine.
func New() *Engine {
	return &Engine{}
}

// Prepare decompresses and compiles the validation code, and returns the
// artifact to store for later executions.
func (*Engine) Prepare(ctx context.Context, code []byte) (artifact []byte, err error) {
	wasm, err := MaybeDecompress(code, CodeBombLimit)
	if err != nil {
		return nil, pvftypes.NewPrepareError(pvftypes.Prevalidation, "decompressing code: %s", err)
	}

	if !bytes.HasPrefix(wasm, wasmMagic) {
		return nil, pvftypes.NewPrepareError(pvftypes.Prevalidation, "code is not a wasm module")
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, RuntimeConfig)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, pvftypes.NewPrepareError(pvftypes.Preparation, "compiling: %s", err)
	}
	defer compiled.Close(ctx)

	definition, ok := compiled.ExportedFunctions()[entryPoint]
	if !ok {
		return nil, pvftypes.NewPrepareError(pvftypes.Preparation, "%s is not exported", entryPoint)
	}

	if !equalTypes(definition.ParamTypes(), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}) ||
		!equalTypes(definition.ResultTypes(), []api.ValueType{api.ValueTypeI64}) {
		return nil, pvftypes.NewPrepareError(pvftypes.Preparation, "%s has an unexpected signature", entryPoint)
	}

	return wasm, nil
}

func equalTypes(a, b []api.ValueType) bool {
	return bytes.Equal(a, b)
}

// Execute runs the validation function of the artifact with the given
// parameters and returns its raw output. The context deadline bounds the
// execution time.
func (*Engine) Execute(ctx context.Context, artifact, params []byte) (output []byte, err error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, RuntimeConfig)
	defer runtime.Close(context.Background())

	module, err := runtime.Instantiate(ctx, artifact)
	if err != nil {
		// a start function may run out of time too.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: instantiating: %w", ErrTimedOut, ctx.Err())
		}
		return nil, fmt.Errorf("%w: instantiating: %w", ErrExecution, err)
	}

	memory := module.Memory()
	if memory == nil {
		return nil, fmt.Errorf("%w: module has no memory", ErrExecution)
	}

	var paramsPtr uint32
	if global := module.ExportedGlobal(heapBase); global != nil {
		paramsPtr = api.DecodeU32(global.Get())
	}

	err = ensureMemory(memory, paramsPtr+uint32(len(params)))
	if err != nil {
		return nil, err
	}

	if !memory.Write(paramsPtr, params) {
		return nil, fmt.Errorf("%w: writing parameters out of memory bounds", ErrExecution)
	}

	function := module.ExportedFunction(entryPoint)
	if function == nil {
		return nil, fmt.Errorf("%w: %s is not exported", ErrExecution, entryPoint)
	}

	results, err := function.Call(ctx, uint64(paramsPtr), uint64(len(params)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrTimedOut, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	outputPtr, outputLength := splitPointerSize(results[0])
	output, ok := memory.Read(outputPtr, outputLength)
	if !ok {
		return nil, fmt.Errorf("%w: output out of memory bounds", ErrExecution)
	}

	// the memory is released with the runtime.
	return append([]byte(nil), output...), nil
}

func ensureMemory(memory api.Memory, size uint32) error {
	if size <= memory.Size() {
		return nil
	}

	missing := size - memory.Size()
	pages := (missing + pageSize - 1) / pageSize
	_, ok := memory.Grow(pages)
	if !ok {
		return fmt.Errorf("%w: cannot grow memory by %d pages", ErrExecution, pages)
	}
	return nil
}

// splitPointerSize splits the packed pointer (low 32 bits) and size (high 32 bits).
func splitPointerSize(pointerSize uint64) (pointer, size uint32) {
	return uint32(pointerSize), uint32(pointerSize >> 32)
}
