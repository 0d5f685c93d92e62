// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the validator's CBOR configuration.
//
// The backend speaks JSON. Everything the kiosk keeps for itself is
// CBOR: the decoded server response stored with each journal entry and
// the entry stream written by a journal export. Both go through this
// package so an entry encodes to the same bytes wherever it is written.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding and no indefinite-length items.
//
//	data, err := codec.Marshal(entry)
//	err = codec.Unmarshal(data, &entry)
//
// Exports are a CBOR sequence, one item per entry:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Server bodies decoded with json.Decoder.UseNumber carry json.Number
// values. FromJSON turns those into plain integers or floats before
// encoding, otherwise they would be written as text.
package codec
