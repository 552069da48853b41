// Command handlers for the tessera CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/tessera"
	"github.com/xlab/treeprint"
)

// handleConfigGet prints one value.
func (m *Manager) handleConfigGet(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	section := ctx.GetArg(1)
	key := ctx.GetArg(2)
	if key == "" {
		return errors.New(tessera.ErrCodeInvalidName, "usage: config get <file> <section> <key>")
	}

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), false)
	if err != nil {
		return err
	}
	defer root.Close()

	if node := root.Find(section); node != nil {
		if value, ok := node.Lookup(key); ok {
			fmt.Fprintln(m.out, value)
			return nil
		}
	}
	if def := ctx.GetFlagString("default"); def != "" {
		fmt.Fprintln(m.out, def)
		return nil
	}
	return errors.New(tessera.ErrCodeInvalidName,
		fmt.Sprintf("key '%s' not found", displayPath(section, key)))
}

// handleConfigSet sets one value, creating the file and the section when
// needed, and saves atomically.
func (m *Manager) handleConfigSet(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	section := ctx.GetArg(1)
	key := ctx.GetArg(2)
	value := ctx.GetArg(3)
	if key == "" {
		return errors.New(tessera.ErrCodeInvalidName, "usage: config set <file> <section> <key> <value>")
	}

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), true)
	if err != nil {
		return err
	}
	defer root.Close()

	root.Node(section).Put(key, value)
	if err := saveRoot(context.Background(), root); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Set %s = %s in %s\n", displayPath(section, key), value, filePath)
	return nil
}

// handleConfigDelete removes a key, or a whole section when no key is given.
func (m *Manager) handleConfigDelete(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	section := ctx.GetArg(1)
	key := ctx.GetArg(2)

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), false)
	if err != nil {
		return err
	}
	defer root.Close()

	node := root.Find(section)
	switch {
	case node == nil:
		return errors.New(tessera.ErrCodeInvalidPath, fmt.Sprintf("section '%s' not found", section))
	case key != "":
		if !node.Remove(key) {
			return errors.New(tessera.ErrCodeInvalidName,
				fmt.Sprintf("key '%s' not found", displayPath(section, key)))
		}
	case node.Parent() == nil:
		return errors.New(tessera.ErrCodeInvalidPath, "refusing to delete the root section; name a key")
	default:
		node.RemoveNode()
	}

	if err := saveRoot(context.Background(), root); err != nil {
		return err
	}

	if key != "" {
		fmt.Fprintf(m.out, "Deleted %s from %s\n", displayPath(section, key), filePath)
	} else {
		fmt.Fprintf(m.out, "Deleted section %s from %s\n", strings.Trim(section, "/"), filePath)
	}
	return nil
}

// handleConfigList prints every value as section/key = value.
func (m *Manager) handleConfigList(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	prefix := strings.TrimPrefix(ctx.GetFlagString("prefix"), tessera.PathSeparator)

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), false)
	if err != nil {
		return err
	}
	defer root.Close()

	flat := root.Flatten()
	count := 0
	for _, section := range sortedSections(flat) {
		name := strings.TrimPrefix(section, tessera.PathSeparator)
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		values := flat[section]
		for _, key := range sortedKeys(values) {
			fmt.Fprintf(m.out, "%s = %s\n", displayPath(name, key), values[key])
			count++
		}
	}

	if count == 0 {
		if prefix != "" {
			fmt.Fprintf(m.out, "No keys found with prefix '%s'\n", prefix)
		} else {
			fmt.Fprintln(m.out, "No keys found")
		}
	}
	return nil
}

// handleConfigTree prints the section hierarchy.
func (m *Manager) handleConfigTree(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	showValues := ctx.GetFlagBool("values")

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), false)
	if err != nil {
		return err
	}
	defer root.Close()

	tree := treeprint.NewWithRoot(filepath.Base(filePath))
	addTreeNodes(tree, root.Tree(), showValues)
	fmt.Fprint(m.out, tree.String())
	return nil
}

func addTreeNodes(branch treeprint.Tree, n *tessera.Node, showValues bool) {
	values := n.Values()
	for _, key := range n.Keys() {
		if showValues {
			branch.AddNode(fmt.Sprintf("%s = %s", key, values[key]))
		} else {
			branch.AddNode(key)
		}
	}
	for _, child := range n.Children() {
		addTreeNodes(branch.AddBranch("["+child.Name()+"]"), child, showValues)
	}
}

// handleConfigConvert reads one file and writes its content in another
// format.
func (m *Manager) handleConfigConvert(ctx *orpheus.Context) error {
	inputPath := ctx.GetArg(0)
	outputPath := ctx.GetArg(1)
	if outputPath == "" {
		return errors.New(tessera.ErrCodeNoFile, "usage: config convert <input> <output>")
	}

	outputFormat, err := resolveFormat(outputPath, ctx.GetFlagString("to"))
	if err != nil {
		return err
	}

	input, err := m.loadRoot(context.Background(), inputPath, ctx.GetFlagString("from"), false)
	if err != nil {
		return err
	}
	defer input.Close()

	output := m.newRoot(outputPath, outputFormat)
	defer output.Close()
	copyTree(output.Tree(), input.Tree())

	if err := saveRoot(context.Background(), output); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Converted %s to %s (%s)\n", inputPath, outputPath, outputFormat.Name())
	return nil
}

// handleConfigValidate reports every lexical problem of a file.
func (m *Manager) handleConfigValidate(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if filePath == "" {
		return errors.New(tessera.ErrCodeNoFile, "usage: config validate <file>")
	}

	err := tessera.ValidateFile(context.Background(), m.fs, filePath, m.style)
	if err == nil {
		fmt.Fprintf(m.out, "%s: valid\n", filePath)
		return nil
	}

	lexical := tessera.LexicalErrors(err)
	if len(lexical) == 0 {
		return err
	}
	for _, le := range lexical {
		fmt.Fprintf(m.out, "%s:%d:%d: %s\n", filePath, le.Line, le.Col, le.Error())
	}
	return errors.New(tessera.ErrCodeLexical,
		fmt.Sprintf("%s: %d lexical error(s)", filePath, len(lexical)))
}

// handleConfigInit creates a new file from a template.
func (m *Manager) handleConfigInit(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if filePath == "" {
		return errors.New(tessera.ErrCodeNoFile, "usage: config init <file>")
	}
	templateType := ctx.GetFlagString("template")

	if _, err := m.fs.Stat(filePath); err == nil && !ctx.GetFlagBool("force") {
		return errors.New(tessera.ErrCodeIOError,
			fmt.Sprintf("file %s already exists (use --force to overwrite)", filePath))
	}

	format, err := resolveFormat(filePath, ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	root := m.newRoot(filePath, format)
	defer root.Close()
	if err := fillTemplate(root.Tree(), templateType, filePath); err != nil {
		return err
	}
	if err := saveRoot(context.Background(), root); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Initialized %s configuration: %s\n", templateType, filePath)
	return nil
}

// handleWatch reloads a file whenever it changes and prints every value
// that changed, until interrupted.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	verbose := ctx.GetFlagBool("verbose")

	interval, err := parseExtendedDuration(ctx.GetFlagString("interval"))
	if err != nil || interval <= 0 {
		return errors.New(tessera.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid interval: %s", ctx.GetFlagString("interval")))
	}

	root, err := m.loadRoot(context.Background(), filePath, ctx.GetFlagString("format"), true)
	if err != nil {
		return err
	}
	defer root.Close()

	printer := &changePrinter{m: m, verbose: verbose}
	printer.attach(root.Tree())

	fmt.Fprintf(m.out, "Watching %s (interval: %v)\n", filePath, interval)
	fmt.Fprintln(m.out, "Press Ctrl+C to stop...")

	watchCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return root.Watch(watchCtx, interval, func(outcome tessera.Outcome) {
		switch outcome {
		case tessera.OutcomeMissing:
			fmt.Fprintf(m.out, "%s: file removed, keeping last configuration\n", filePath)
		case tessera.OutcomeLoaded:
			if verbose {
				fmt.Fprintf(m.out, "%s: reloaded at %s\n", filePath, time.Now().Format(time.RFC3339))
			}
		default:
			fmt.Fprintf(m.out, "%s: reload %s\n", filePath, outcome)
		}
	})
}

// changePrinter prints value changes of a tree and follows new sections.
type changePrinter struct {
	m       *Manager
	verbose bool
}

func (p *changePrinter) attach(n *tessera.Node) {
	n.AddValueListener(p)
	n.AddStructureListener(p)
	for _, child := range n.Children() {
		p.attach(child)
	}
}

func (p *changePrinter) ValueChanged(e tessera.ValueChangeEvent) {
	name := displayPath(e.Node.Path(), e.Key)
	switch {
	case e.Removed:
		fmt.Fprintf(p.m.out, "- %s\n", name)
	case !e.Existed:
		fmt.Fprintf(p.m.out, "+ %s = %s\n", name, e.NewValue)
	default:
		fmt.Fprintf(p.m.out, "~ %s: %s -> %s\n", name, e.OldValue, e.NewValue)
	}
}

func (p *changePrinter) StructureChanged(e tessera.StructureChangeEvent) {
	if e.Kind == tessera.ChildAdded {
		p.attach(e.Child)
	}
	if p.verbose {
		fmt.Fprintf(p.m.out, "%s section %s\n", e.Kind, strings.TrimPrefix(e.Child.Path(), "/"))
	}
}

// handleAuditStats prints the statistics of the configured journal.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(tessera.ErrCodeAudit, "audit logging not enabled (use --audit-file)")
	}
	if err := m.auditLogger.Flush(); err != nil {
		return err
	}
	stats, err := m.auditLogger.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Backend: %s\n", stats.Backend)
	fmt.Fprintf(m.out, "Path: %s\n", stats.Path)
	fmt.Fprintf(m.out, "Total events: %d\n", stats.TotalEvents)
	fmt.Fprintf(m.out, "Storage size: %d bytes\n", stats.StorageSize)
	for _, level := range []tessera.AuditLevel{tessera.AuditInfo, tessera.AuditWarn, tessera.AuditCritical, tessera.AuditSecurity} {
		if n := stats.EventsByLevel[level.String()]; n > 0 {
			fmt.Fprintf(m.out, "  %s: %d\n", level, n)
		}
	}
	return nil
}

// handleAuditQuery prints the events of a JSONL journal.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	journal := ctx.GetArg(0)
	if journal == "" {
		return errors.New(tessera.ErrCodeNoFile, "usage: audit query <journal.jsonl>")
	}

	since, err := parseExtendedDuration(ctx.GetFlagString("since"))
	if err != nil {
		return errors.New(tessera.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid time range: %s", ctx.GetFlagString("since")))
	}
	eventFilter := ctx.GetFlagString("event")
	fileFilter := ctx.GetFlagString("file")
	limit := ctx.GetFlagInt("limit")
	verify := ctx.GetFlagBool("verify")

	events, err := tessera.ReadAuditLog(journal)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-since)
	shown, tampered := 0, 0
	for _, event := range events {
		if limit > 0 && shown >= limit {
			break
		}
		if event.Timestamp.Before(cutoff) ||
			(eventFilter != "" && event.Event != eventFilter) ||
			(fileFilter != "" && event.FilePath != fileFilter) {
			continue
		}
		mark := ""
		if verify && !tessera.VerifyChecksum(event) {
			mark = " [checksum mismatch]"
			tampered++
		}
		fmt.Fprintf(m.out, "%s %-8s %-18s %s %s%s\n",
			event.Timestamp.Format(time.RFC3339), event.Level, event.Event, event.FilePath, event.Detail, mark)
		shown++
	}

	fmt.Fprintf(m.out, "%d event(s)\n", shown)
	if tampered > 0 {
		return errors.New(tessera.ErrCodeAudit, fmt.Sprintf("%d event(s) failed checksum verification", tampered))
	}
	return nil
}

// handleInfo prints version and settings.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	fmt.Fprintf(m.out, "tessera %s\n", Version)
	fmt.Fprintf(m.out, "Encoding: %s\n", m.style.EncodingName())
	fmt.Fprintf(m.out, "Comment marks: %s\n", m.style.CommentMarks())
	fmt.Fprintf(m.out, "Line ending: %q\n", m.style.LineTerminator())
	fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger != nil)

	if verbose {
		fmt.Fprintln(m.out, "\nFormats:")
		for _, format := range tessera.Formats() {
			fmt.Fprintf(m.out, "  %-6s %s\n", format.Name(), strings.Join(format.Extensions(), " "))
		}
	}
	return nil
}
