// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/lpbme/club-validator/lib/codec"
)

// ExportFormat identifies an export stream in its header.
const ExportFormat = "club-validator-journal"

// ExportVersion is the current export header version.
const ExportVersion = 1

// Compression selects the compression applied to an export.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("journal: unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// Stream magic numbers used by ReadExport.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	ageMagic  = []byte("age-encryption.org/")
)

// ExportOptions configures Export.
type ExportOptions struct {
	Filter      Filter
	Compression Compression

	// Recipients are age X25519 public keys ("age1..."). When set the
	// stream is encrypted to all of them.
	Recipients []string
}

// Header is the first item of an export stream.
type Header struct {
	Format     string    `cbor:"format"`
	Version    int       `cbor:"version"`
	ExportedAt time.Time `cbor:"exported_at"`
	Entries    int       `cbor:"entries"`
	Since      time.Time `cbor:"since"`
	Until      time.Time `cbor:"until"`
}

// Export writes the entries selected by options.Filter to w and
// returns how many were written. The stream is complete only when
// Export returns nil.
func (j *Journal) Export(ctx context.Context, w io.Writer, options ExportOptions) (int, error) {
	entries, err := j.List(ctx, options.Filter)
	if err != nil {
		return 0, err
	}

	recipients, err := ParseRecipients(options.Recipients)
	if err != nil {
		return 0, err
	}

	var closers []io.Closer
	sink := w
	if len(recipients) > 0 {
		encrypted, err := age.Encrypt(sink, recipients...)
		if err != nil {
			return 0, fmt.Errorf("journal: starting encryption: %w", err)
		}
		closers = append(closers, encrypted)
		sink = encrypted
	}

	switch options.Compression {
	case CompressionNone:
	case CompressionLZ4:
		compressed := lz4.NewWriter(sink)
		closers = append(closers, compressed)
		sink = compressed
	case CompressionZstd:
		compressed, err := zstd.NewWriter(sink, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return 0, fmt.Errorf("journal: starting zstd: %w", err)
		}
		closers = append(closers, compressed)
		sink = compressed
	default:
		return 0, fmt.Errorf("journal: unknown compression %v", options.Compression)
	}

	encoder := codec.NewEncoder(sink)
	header := Header{
		Format:     ExportFormat,
		Version:    ExportVersion,
		ExportedAt: j.clock.Now().UTC(),
		Entries:    len(entries),
		Since:      options.Filter.Since,
		Until:      options.Filter.Until,
	}
	if err := encoder.Encode(header); err != nil {
		return 0, fmt.Errorf("journal: writing export header: %w", err)
	}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := encoder.Encode(entry); err != nil {
			return i, fmt.Errorf("journal: writing entry %s: %w", entry.ID, err)
		}
	}

	// Innermost layer first so each flushes into the one below.
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			return len(entries), fmt.Errorf("journal: finishing export: %w", err)
		}
	}

	j.logger.Info("journal exported",
		"entries", len(entries),
		"compression", options.Compression,
		"encrypted", len(recipients) > 0,
	)
	return len(entries), nil
}

// ParseRecipients parses age X25519 public keys.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(keys))
	for _, key := range keys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("journal: invalid recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// ParseIdentities reads age identities in the age-keygen file format.
func ParseIdentities(r io.Reader) ([]age.Identity, error) {
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("journal: parsing identities: %w", err)
	}
	return identities, nil
}

// ErrEncrypted is returned by ReadExport for an encrypted stream when
// no identities were supplied.
var ErrEncrypted = errors.New("journal: export is encrypted")

// ReadExport decodes an export stream, removing encryption and
// compression as detected from the data.
func ReadExport(r io.Reader, identities ...age.Identity) (Header, []Entry, error) {
	buffered := bufio.NewReader(r)

	if hasPrefix(buffered, ageMagic) {
		if len(identities) == 0 {
			return Header{}, nil, ErrEncrypted
		}
		decrypted, err := age.Decrypt(buffered, identities...)
		if err != nil {
			return Header{}, nil, fmt.Errorf("journal: decrypting export: %w", err)
		}
		buffered = bufio.NewReader(decrypted)
	}

	var source io.Reader = buffered
	switch {
	case hasPrefix(buffered, zstdMagic):
		decompressed, err := zstd.NewReader(buffered)
		if err != nil {
			return Header{}, nil, fmt.Errorf("journal: starting zstd: %w", err)
		}
		defer decompressed.Close()
		source = decompressed
	case hasPrefix(buffered, lz4Magic):
		source = lz4.NewReader(buffered)
	}

	decoder := codec.NewDecoder(source)
	var header Header
	if err := decoder.Decode(&header); err != nil {
		return Header{}, nil, fmt.Errorf("journal: reading export header: %w", err)
	}
	if header.Format != ExportFormat {
		return Header{}, nil, fmt.Errorf("journal: not a journal export (format %q)", header.Format)
	}
	if header.Version > ExportVersion {
		return Header{}, nil, fmt.Errorf("journal: export version %d is newer than %d", header.Version, ExportVersion)
	}

	entries := make([]Entry, 0, header.Entries)
	for {
		var entry Entry
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return header, entries, fmt.Errorf("journal: reading entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
	if len(entries) != header.Entries {
		return header, entries, fmt.Errorf("journal: export truncated: %d of %d entries", len(entries), header.Entries)
	}
	return header, entries, nil
}

func hasPrefix(r *bufio.Reader, magic []byte) bool {
	peeked, _ := r.Peek(len(magic))
	return bytes.Equal(peeked, magic)
}
