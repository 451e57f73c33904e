// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package scale implements the SCALE codec used on the wire between the
// validation host and its workers, and by the validate_block entry point.
package scale

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// package level cache for fieldScaleIndices
var cache = &fieldScaleIndicesCache{
	cache: make(map[string]fieldScaleIndices),
}

// fieldScaleIndex is used to map field index to scale index
type fieldScaleIndex struct {
	fieldIndex int
	scaleIndex *string
}
type fieldScaleIndices []fieldScaleIndex

// fieldScaleIndicesCache stores the order of the fields per struct
type fieldScaleIndicesCache struct {
	cache map[string]fieldScaleIndices
	sync.RWMutex
}

// fieldScaleIndices returns the fields of the struct type t in encoding
// order. Fields tagged `scale:"N"` come first ordered by tag, then untagged
// fields in declaration order. Fields tagged `scale:"-"` are skipped.
func (fsic *fieldScaleIndicesCache) fieldScaleIndices(t reflect.Type) (indices fieldScaleIndices) {
	key := fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
	if key != "." {
		var ok bool
		fsic.RLock()
		indices, ok = fsic.cache[key]
		fsic.RUnlock()
		if ok {
			return indices
		}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.TrimSpace(field.Tag.Get("scale"))
		switch tag {
		case "":
			indices = append(indices, fieldScaleIndex{
				fieldIndex: i,
			})
		case "-":
			continue
		default:
			indices = append(indices, fieldScaleIndex{
				fieldIndex: i,
				scaleIndex: &tag,
			})
		}
	}

	sort.SliceStable(indices, func(i, j int) bool {
		switch {
		case indices[i].scaleIndex == nil && indices[j].scaleIndex != nil:
			return false
		case indices[i].scaleIndex != nil && indices[j].scaleIndex == nil:
			return true
		case indices[i].scaleIndex == nil && indices[j].scaleIndex == nil:
			return indices[i].fieldIndex < indices[j].fieldIndex
		default:
			return *indices[i].scaleIndex < *indices[j].scaleIndex
		}
	})

	if key != "." {
		fsic.Lock()
		fsic.cache[key] = indices
		fsic.Unlock()
	}
	return indices
}
