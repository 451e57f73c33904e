// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package engine

// EchoModule returns a wasm module whose validate_block returns its
// input unchanged. The input is written at the __heap_base global.
func EchoModule() []byte {
	// local.get 1; i64.extend_i32_u; i64.const 32; i64.shl;
	// local.get 0; i64.extend_i32_u; i64.or
	body := []byte{0x20, 0x01, 0xad, 0x42, 0x20, 0x86, 0x20, 0x00, 0xad, 0x84}
	return validateBlockModule(body)
}

// LoopModule returns a wasm module whose validate_block never returns.
func LoopModule() []byte {
	// loop; br 0; end; unreachable
	body := []byte{0x03, 0x40, 0x0c, 0x00, 0x0b, 0x00}
	return validateBlockModule(body)
}

// validateBlockModule assembles a module with one page of memory, an
// immutable __heap_base global set to 1024 and a validate_block function
// of type (i32, i32) -> i64 with the given body instructions.
func validateBlockModule(instructions []byte) []byte {
	module := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type section: (i32, i32) -> i64
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
		// function section
		0x03, 0x02, 0x01, 0x00,
		// memory section: one page minimum
		0x05, 0x03, 0x01, 0x00, 0x01,
		// global section: i32 const 1024
		0x06, 0x07, 0x01, 0x7f, 0x00, 0x41, 0x80, 0x08, 0x0b,
		// export section
		0x07, 0x29, 0x03,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x0b, '_', '_', 'h', 'e', 'a', 'p', '_', 'b', 'a', 's', 'e', 0x03, 0x00,
		0x0e, 'v', 'a', 'l', 'i', 'd', 'a', 't', 'e', '_', 'b', 'l', 'o', 'c', 'k', 0x00, 0x00,
	}

	// no locals, instructions, end
	body := append([]byte{0x00}, instructions...)
	body = append(body, 0x0b)

	code := []byte{0x01, byte(len(body))}
	code = append(code, body...)

	module = append(module, 0x0a, byte(len(code)))
	return append(module, code...)
}
