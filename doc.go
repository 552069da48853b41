// Package tessera stores hierarchical configuration as INI text that people
// can read and edit by hand, and keeps it in a tree of nodes a program can
// query, change and persist.
//
// # The Text Format
//
// A file is a sequence of lines. Each line is blank, a comment, a section
// header or a key assignment:
//
//	; written by myapp
//	[directories]
//	user = /home/me
//	motd = \sindented\nsecond line
//
//	[server/tls]
//	enabled = true
//
// Comments start with one of the comment marks of the LexicalStyle (';' and
// '#' by default). Section names may contain '/' to address nested nodes;
// "[]" addresses the root. Values run to the end of the line with leading
// whitespace skipped. Escapes \\, \n, \r, \t, \s (space), \uXXXX and \UXXXXXXXX let values
// carry line breaks and leading whitespace.
//
// Parsing never stops at a malformed line. The scanner reports the problem
// to its Handler with the line, column and state, skips the rest of the line
// and carries on, so one bad line costs one entry and nothing else.
//
// # Trees
//
// A Node holds string values by key and named children. Node(path) resolves
// a '/' separated path and creates missing nodes; Find does the same without
// creating. Typed helpers (GetInt, PutBool, GetDuration, GetStrings, ...)
// store everything as text.
//
//	root := tessera.NewRootNode(tessera.Config{File: "~/.myapp.ini"})
//	if _, err := root.Load(ctx); err != nil {
//		return err
//	}
//	port := root.Node("server").GetInt("port", 8080)
//	root.Node("server").PutInt("port", port+1)
//	root.Save(ctx)
//
// Listeners registered with AddValueListener and AddStructureListener are
// called after the tree lock is released, in registration order, with a
// snapshot of the listener list taken when the change happened.
//
// # Loading and Saving
//
// RootNode binds a tree to a file. Load merges the file into the tree,
// Reload makes the tree mirror it and Save writes the tree back through a
// temporary file and an atomic rename. A missing file is not an error: the
// tree keeps its defaults. I/O and format failures are reported through
// Config.ErrorHandler and return OutcomeFailed; the tree is left as it was.
//
// Files are read and written through an afero.Fs, so tests can use
// afero.NewMemMapFs. The format is chosen by extension: .ini, .conf, .cfg
// and .config are INI text, .yaml and .yml are a YAML mirror with one
// mapping per section.
//
// # Audit Journal
//
// With Config.Audit.Enabled every load, save and skipped entry is written to
// a journal (SQLite by default, JSON lines for .jsonl paths) with a SHA-256
// checksum per event.
//
// # Overlays
//
// LoadConfigFromEnv builds a Config from TESSERA_* variables, and
// FlagOverlay maps command-line flags onto tree keys with the usual
// flag > environment > file > default precedence.
//
// Repository: https://github.com/agilira/tessera
package tessera
