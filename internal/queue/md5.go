// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// md5OfBody matches SQS's MD5OfBody: the plain MD5 of the UTF-8 body.
func md5OfBody(body string) string {
	return md5Hex([]byte(body))
}

// md5OfAttributes approximates SQS's MD5OfMessageAttributes: attributes are
// processed in name-sorted order, and each is hashed as a length-prefixed
// name, length-prefixed data type, a type marker byte, and a
// length-prefixed value, matching the wire encoding AWS documents for this
// digest.
func md5OfAttributes(attrs map[string]MessageAttributeValue) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	h := md5.New()
	for _, name := range names {
		v := attrs[name]
		writeLengthPrefixed(h, []byte(name))
		writeLengthPrefixed(h, []byte(v.DataType))
		switch {
		case len(v.BinaryValue) > 0:
			h.Write([]byte{2})
			writeLengthPrefixed(h, v.BinaryValue)
		default:
			h.Write([]byte{1})
			writeLengthPrefixed(h, []byte(v.StringValue))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeLengthPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	h.Write(lenBuf[:])
	h.Write(b)
}
