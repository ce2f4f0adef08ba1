// Package patch appends entries to a JSON document without rewriting any
// existing byte. The target is a large hand-maintained mapping; a generic
// parse→mutate→re-encode round trip would reorder keys and normalize
// whitespace, polluting the reviewable diff. The original text is the
// source of truth: everything up to the closing brace is emitted
// verbatim and new entries are spliced in front of it.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
)

// ErrMalformedDocument means the target text does not parse as a JSON
// object at its top level. Retrying will not fix it; it signals an
// upstream format change.
var ErrMalformedDocument = errors.New("target document is not a JSON object")

// Addition is one (key, value) pair to append. Value must marshal to
// JSON deterministically (a struct, not a map).
type Addition struct {
	Key   string
	Value any
}

const defaultIndent = "    "

// Apply splices the additions into the document immediately before its
// closing brace. Existing keys are never touched: additions whose key is
// already present are skipped, and an addition repeating an earlier
// addition's key is skipped too, so the output never carries a duplicate
// key (the diff engine should have filtered both cases; this is the
// last line of defense against corrupting the document). If nothing
// remains to add, the original bytes are returned unchanged.
func Apply(original []byte, additions []Addition) ([]byte, error) {
	existing := make(map[string]json.RawMessage)
	if err := json.Unmarshal(original, &existing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	pending := make([]Addition, 0, len(additions))
	seen := make(map[string]struct{}, len(additions))
	for _, a := range additions {
		if _, ok := existing[a.Key]; ok {
			continue
		}
		if _, ok := seen[a.Key]; ok {
			continue
		}
		seen[a.Key] = struct{}{}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		return original, nil
	}

	closing := bytes.LastIndexByte(original, '}')
	if closing < 0 {
		return nil, ErrMalformedDocument
	}

	indent := sniffIndent(original)

	var splice strings.Builder
	if len(existing) > 0 {
		splice.WriteByte(',')
	}
	splice.WriteByte('\n')
	for i, a := range pending {
		if i > 0 {
			splice.WriteString(",\n")
		}
		line, err := renderEntry(a, indent)
		if err != nil {
			return nil, fmt.Errorf("serializing entry %q: %w", a.Key, err)
		}
		splice.WriteString(line)
	}
	splice.WriteByte('\n')

	out := make([]byte, 0, len(original)+splice.Len())
	out = append(out, original[:closing]...)
	out = append(out, splice.String()...)
	out = append(out, original[closing:]...)

	if err := verify(existing, pending, out); err != nil {
		return nil, err
	}
	return out, nil
}

// renderEntry serializes one addition using the document's indentation.
func renderEntry(a Addition, indent string) (string, error) {
	key, err := json.Marshal(a.Key)
	if err != nil {
		return "", err
	}
	value, err := json.MarshalIndent(a.Value, indent, indent)
	if err != nil {
		return "", err
	}
	return indent + string(key) + ": " + string(value), nil
}

// sniffIndent returns the leading whitespace of the first indented key
// line, falling back to four spaces (the upstream document's style).
func sniffIndent(doc []byte) string {
	for _, line := range bytes.Split(doc, []byte{'\n'}) {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == len(line) || len(trimmed) == 0 {
			continue
		}
		if trimmed[0] == '"' {
			return string(line[:len(line)-len(trimmed)])
		}
	}
	return defaultIndent
}

// verify checks the splice did not corrupt the document: the output must
// re-parse, and its canonical JSON form must equal the canonical form of
// the original mapping plus the additions. A mismatch is an internal
// error; a corrupted document must never be proposed upstream.
func verify(existing map[string]json.RawMessage, added []Addition, out []byte) error {
	merged := make(map[string]json.RawMessage, len(existing)+len(added))
	for k, v := range existing {
		merged[k] = v
	}
	for _, a := range added {
		raw, err := json.Marshal(a.Value)
		if err != nil {
			return fmt.Errorf("patch verification: %w", err)
		}
		merged[a.Key] = raw
	}

	expected, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("patch verification: %w", err)
	}
	canonExpected, err := jcs.Transform(expected)
	if err != nil {
		return fmt.Errorf("patch verification: %w", err)
	}
	canonOut, err := jcs.Transform(out)
	if err != nil {
		return fmt.Errorf("patch verification: output does not parse: %w", err)
	}
	if !bytes.Equal(canonExpected, canonOut) {
		return errors.New("patch verification: output is not the original mapping plus additions")
	}
	return nil
}
