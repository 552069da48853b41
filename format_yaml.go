// format_yaml.go: YAML mirror of the configuration tree
//
// The YAML document is a mapping from section name to a mapping of key to
// string. The node the tree is encoded from is written as "/". Nested
// mappings or sequences below a key are rejected, not flattened.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// YAMLFormat reads and writes the flat YAML mirror.
type YAMLFormat struct{}

// Name returns "yaml".
func (YAMLFormat) Name() string { return "yaml" }

// Extensions returns ".yaml" and ".yml".
func (YAMLFormat) Extensions() []string { return []string{".yaml", ".yml"} }

// Decode merges the YAML document in r into the tree. Entries that are
// not scalars are passed to opts.Report and skipped.
func (YAMLFormat) Decode(ctx context.Context, r io.Reader, into *Node, opts FormatOptions) error {
	if err := ctxErr(ctx, "yaml decode canceled"); err != nil {
		return err
	}

	var doc map[string]map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrap(err, ErrCodeFormat, "failed to decode YAML configuration")
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctxErr(ctx, "yaml decode canceled"); err != nil {
			return err
		}
		target := into
		if name != PathSeparator && name != "" {
			target = into.Node(name)
		}
		for key, raw := range doc[name] {
			switch v := raw.(type) {
			case nil:
				target.Put(key, "")
			case map[string]interface{}, []interface{}:
				opts.report(errors.New(ErrCodeFormat, "nested YAML value skipped").
					WithContext("section", name).
					WithContext("key", key))
			default:
				target.Put(key, fmt.Sprint(v))
			}
		}
	}
	return nil
}

// Encode writes the tree as YAML. The header becomes a leading comment.
func (YAMLFormat) Encode(ctx context.Context, w io.WriteCloser, from *Node, opts FormatOptions) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, ErrCodeIOError, "failed to close configuration sink")
		}
	}()

	if err := ctxErr(ctx, "yaml encode canceled"); err != nil {
		return err
	}

	doc := make(map[string]map[string]string)
	for _, s := range snapshot(from) {
		name := s.name
		if name == "" {
			name = PathSeparator
		}
		values := make(map[string]string, len(s.keys))
		for i, k := range s.keys {
			values[k] = s.values[i]
		}
		doc[name] = values
	}

	if opts.Header != "" {
		for _, line := range splitLines(opts.Header) {
			if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
				return errors.Wrap(err, ErrCodeIOError, "failed to write YAML header")
			}
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, ErrCodeFormat, "failed to encode YAML configuration")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to finish YAML document")
	}
	return nil
}

func ctxErr(ctx context.Context, msg string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), ErrCodeInterrupted, msg)
	default:
		return nil
	}
}
