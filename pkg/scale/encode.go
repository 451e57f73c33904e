// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Marshal returns the SCALE encoding of v.
// Pointers are encoded as options, nil being None.
func Marshal(v interface{}) (b []byte, err error) {
	es := encodeState{
		fieldScaleIndicesCache: cache,
	}
	err = es.marshal(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return es.Bytes(), nil
}

type encodeState struct {
	bytes.Buffer
	*fieldScaleIndicesCache
}

func (es *encodeState) marshal(v reflect.Value) (err error) {
	if !v.IsValid() {
		return fmt.Errorf("%w: nil interface", ErrUnsupportedType)
	}

	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return es.encodeFixedWidthInt(v)
	case reflect.Bool:
		return es.encodeBool(v.Bool())
	case reflect.String:
		return es.encodeBytes([]byte(v.String()))
	case reflect.Ptr:
		// anything that is a pointer is an Option to capture {nil, T}
		if v.IsNil() {
			return es.WriteByte(0)
		}
		err = es.WriteByte(1)
		if err != nil {
			return err
		}
		return es.marshal(v.Elem())
	case reflect.Struct:
		return es.encodeStruct(v)
	case reflect.Array:
		return es.encodeArray(v)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return es.encodeBytes(v.Bytes())
		}
		return es.encodeSlice(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
	}
}

// encodeSlice writes the compact length of the slice followed by each
// encoded element.
func (es *encodeState) encodeSlice(v reflect.Value) (err error) {
	err = es.encodeLength(v.Len())
	if err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		err = es.marshal(v.Index(i))
		if err != nil {
			return err
		}
	}
	return nil
}

// encodeArray encodes each element of the array. The length is implied by the type.
func (es *encodeState) encodeArray(v reflect.Value) (err error) {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		for i := 0; i < v.Len(); i++ {
			err = es.WriteByte(byte(v.Index(i).Uint()))
			if err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < v.Len(); i++ {
		err = es.marshal(v.Index(i))
		if err != nil {
			return err
		}
	}
	return nil
}

// encodeBool performs the following:
// l = true -> write [1]
// l = false -> write [0]
func (es *encodeState) encodeBool(l bool) (err error) {
	if l {
		return es.WriteByte(0x01)
	}
	return es.WriteByte(0x00)
}

// encodeBytes performs the following:
// b -> [encodeUint(len(b)) b]
func (es *encodeState) encodeBytes(b []byte) (err error) {
	err = es.encodeLength(len(b))
	if err != nil {
		return err
	}

	_, err = es.Write(b)
	return err
}

// encodeFixedWidthInt writes the integer in little endian using the width of
// its type. int and uint are written on 8 bytes.
func (es *encodeState) encodeFixedWidthInt(v reflect.Value) (err error) {
	switch v.Kind() {
	case reflect.Int8:
		err = binary.Write(es, binary.LittleEndian, int8(v.Int()))
	case reflect.Uint8:
		err = binary.Write(es, binary.LittleEndian, uint8(v.Uint()))
	case reflect.Int16:
		err = binary.Write(es, binary.LittleEndian, int16(v.Int()))
	case reflect.Uint16:
		err = binary.Write(es, binary.LittleEndian, uint16(v.Uint()))
	case reflect.Int32:
		err = binary.Write(es, binary.LittleEndian, int32(v.Int()))
	case reflect.Uint32:
		err = binary.Write(es, binary.LittleEndian, uint32(v.Uint()))
	case reflect.Int64, reflect.Int:
		err = binary.Write(es, binary.LittleEndian, v.Int())
	case reflect.Uint64, reflect.Uint:
		err = binary.Write(es, binary.LittleEndian, v.Uint())
	default:
		err = fmt.Errorf("could not encode fixed width integer, invalid type: %s", v.Type())
	}
	return err
}

// encodeStruct writes each exported field in scale index order.
func (es *encodeState) encodeStruct(v reflect.Value) (err error) {
	for _, i := range es.fieldScaleIndices(v.Type()) {
		err = es.marshal(v.Field(i.fieldIndex))
		if err != nil {
			return fmt.Errorf("encoding field %s: %w", v.Type().Field(i.fieldIndex).Name, err)
		}
	}
	return nil
}

// encodeLength is a helper function that calls encodeUint, which is the scale length encoding
func (es *encodeState) encodeLength(l int) (err error) {
	return es.encodeUint(uint64(l))
}

// encodeUint performs the compact encoding of i:
// if i < 2^6 write [00 i^2...i^8 ] [ 8 bits = 1 byte encoded ]
// if 2^6 <= i < 2^14 write [01 i^2...i^16] [ 16 bits = 2 byte encoded ]
// if 2^14 <= i < 2^30 write [10 i^2...i^32] [ 32 bits = 4 byte encoded ]
// if i >= 2^30 write [lower 2 bits of first byte = 11] [upper 6 bits of first byte = # of bytes following less 4]
// [append i as a byte array to the first byte]
func (es *encodeState) encodeUint(i uint64) (err error) {
	switch {
	case i < 1<<6:
		return es.WriteByte(byte(i) << 2)
	case i < 1<<14:
		return binary.Write(es, binary.LittleEndian, uint16(i<<2)+1)
	case i < 1<<30:
		return binary.Write(es, binary.LittleEndian, uint32(i<<2)+2)
	}

	o := make([]byte, 8)
	m := i
	var numBytes int
	// the most significant byte cannot be zero
	for numBytes = 0; numBytes < 8 && m != 0; numBytes++ {
		m >>= 8
	}

	topSixBits := uint8(numBytes - 4)
	lengthByte := topSixBits<<2 + 3

	err = es.WriteByte(lengthByte)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(o, i)
	_, err = es.Write(o[:numBytes])
	return err
}
