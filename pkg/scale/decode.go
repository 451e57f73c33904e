// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Unmarshal decodes the SCALE encoded data into dst, which must be a
// non-nil pointer. Malformed data is reported as an error. Lengths are
// bounded by the data left to decode.
func Unmarshal(data []byte, dst interface{}) (err error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrUnsupportedDst, dst)
	}

	ds := decodeState{
		Reader:                 bytes.NewReader(data),
		fieldScaleIndicesCache: cache,
	}
	return ds.unmarshal(rv.Elem())
}

type decodeState struct {
	*bytes.Reader
	*fieldScaleIndicesCache
}

func (ds *decodeState) unmarshal(dstv reflect.Value) (err error) {
	switch dstv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return ds.decodeFixedWidthInt(dstv)
	case reflect.Bool:
		return ds.decodeBool(dstv)
	case reflect.String:
		b, err := ds.decodeBytes()
		if err != nil {
			return err
		}
		dstv.SetString(string(b))
		return nil
	case reflect.Ptr:
		return ds.decodePointer(dstv)
	case reflect.Struct:
		return ds.decodeStruct(dstv)
	case reflect.Array:
		return ds.decodeArray(dstv)
	case reflect.Slice:
		if dstv.Type().Elem().Kind() == reflect.Uint8 {
			b, err := ds.decodeBytes()
			if err != nil {
				return err
			}
			slice := reflect.MakeSlice(dstv.Type(), len(b), len(b))
			reflect.Copy(slice, reflect.ValueOf(b))
			dstv.Set(slice)
			return nil
		}
		return ds.decodeSlice(dstv)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dstv.Type())
	}
}

// readN reads exactly n bytes.
func (ds *decodeState) readN(n int) (b []byte, err error) {
	if n > ds.Len() {
		return nil, fmt.Errorf("%w: reading %d bytes, %d left", ErrUnexpectedEOF, n, ds.Len())
	}
	b = make([]byte, n)
	_, err = ds.Read(b)
	return b, err
}

// decodeFixedWidthInt reads the integer in little endian using the width
// of its type. int and uint are read on 8 bytes.
func (ds *decodeState) decodeFixedWidthInt(dstv reflect.Value) (err error) {
	var buf []byte
	switch dstv.Kind() {
	case reflect.Int8, reflect.Uint8:
		buf, err = ds.readN(1)
		if err != nil {
			return err
		}
		if dstv.Kind() == reflect.Int8 {
			dstv.SetInt(int64(int8(buf[0])))
		} else {
			dstv.SetUint(uint64(buf[0]))
		}
	case reflect.Int16:
		buf, err = ds.readN(2)
		if err != nil {
			return err
		}
		dstv.SetInt(int64(int16(binary.LittleEndian.Uint16(buf))))
	case reflect.Uint16:
		buf, err = ds.readN(2)
		if err != nil {
			return err
		}
		dstv.SetUint(uint64(binary.LittleEndian.Uint16(buf)))
	case reflect.Int32:
		buf, err = ds.readN(4)
		if err != nil {
			return err
		}
		dstv.SetInt(int64(int32(binary.LittleEndian.Uint32(buf))))
	case reflect.Uint32:
		buf, err = ds.readN(4)
		if err != nil {
			return err
		}
		dstv.SetUint(uint64(binary.LittleEndian.Uint32(buf)))
	case reflect.Int64, reflect.Int:
		buf, err = ds.readN(8)
		if err != nil {
			return err
		}
		dstv.SetInt(int64(binary.LittleEndian.Uint64(buf)))
	case reflect.Uint64, reflect.Uint:
		buf, err = ds.readN(8)
		if err != nil {
			return err
		}
		dstv.SetUint(binary.LittleEndian.Uint64(buf))
	}
	return nil
}

func (ds *decodeState) decodeBool(dstv reflect.Value) (err error) {
	b, err := ds.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reading bool", ErrUnexpectedEOF)
	}
	switch b {
	case 0x00:
		dstv.SetBool(false)
	case 0x01:
		dstv.SetBool(true)
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
	}
	return nil
}

// decodePointer decodes an option: 0 is None and leaves a nil pointer,
// 1 is followed by the encoded value.
func (ds *decodeState) decodePointer(dstv reflect.Value) (err error) {
	b, err := ds.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reading option", ErrUnexpectedEOF)
	}
	switch b {
	case 0x00:
		dstv.Set(reflect.Zero(dstv.Type()))
		return nil
	case 0x01:
		elem := reflect.New(dstv.Type().Elem())
		err = ds.unmarshal(elem.Elem())
		if err != nil {
			return err
		}
		dstv.Set(elem)
		return nil
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidOption, b)
	}
}

func (ds *decodeState) decodeStruct(dstv reflect.Value) (err error) {
	for _, i := range ds.fieldScaleIndices(dstv.Type()) {
		err = ds.unmarshal(dstv.Field(i.fieldIndex))
		if err != nil {
			return fmt.Errorf("decoding field %s: %w", dstv.Type().Field(i.fieldIndex).Name, err)
		}
	}
	return nil
}

func (ds *decodeState) decodeArray(dstv reflect.Value) (err error) {
	for i := 0; i < dstv.Len(); i++ {
		err = ds.unmarshal(dstv.Index(i))
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeSlice reads the compact length then each element. Every element
// takes at least one byte, so a length above the remaining data is rejected
// before allocating.
func (ds *decodeState) decodeSlice(dstv reflect.Value) (err error) {
	length, err := ds.decodeLength()
	if err != nil {
		return err
	}

	slice := reflect.MakeSlice(dstv.Type(), length, length)
	for i := 0; i < length; i++ {
		err = ds.unmarshal(slice.Index(i))
		if err != nil {
			return fmt.Errorf("decoding element %d: %w", i, err)
		}
	}
	dstv.Set(slice)
	return nil
}

func (ds *decodeState) decodeBytes() (b []byte, err error) {
	length, err := ds.decodeLength()
	if err != nil {
		return nil, err
	}
	return ds.readN(length)
}

// decodeLength decodes a compact length and checks it against the data left.
func (ds *decodeState) decodeLength() (length int, err error) {
	l, err := ds.decodeUint()
	if err != nil {
		return 0, err
	}
	if l > uint64(ds.Len()) {
		return 0, fmt.Errorf("%w: length %d, %d bytes left", ErrLengthOutOfBounds, l, ds.Len())
	}
	return int(l), nil
}

// decodeUint decodes a compact encoded unsigned integer, see encodeUint.
func (ds *decodeState) decodeUint() (o uint64, err error) {
	prefix, err := ds.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: reading compact prefix", ErrUnexpectedEOF)
	}

	var buf []byte
	switch prefix % 4 {
	case 0:
		return uint64(prefix >> 2), nil
	case 1:
		buf, err = ds.readN(1)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16([]byte{prefix, buf[0]}) >> 2), nil
	case 2:
		buf, err = ds.readN(3)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(append([]byte{prefix}, buf...)) >> 2), nil
	}

	numBytes := int(prefix>>2) + 4
	if numBytes > 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrCompactTooLarge, numBytes)
	}
	buf, err = ds.readN(numBytes)
	if err != nil {
		return 0, err
	}
	padded := make([]byte, 8)
	copy(padded, buf)
	return binary.LittleEndian.Uint64(padded), nil
}
