// flags.go: Command-line and environment overlay for configuration trees
//
// A FlagOverlay binds command-line flags to keys of a configuration tree.
// Applying it gives the usual precedence:
//   1. flags given on the command line
//   2. environment variables (APPNAME_FLAG_NAME)
//   3. values already in the tree, usually loaded from the file
//   4. flag defaults
//
// Example:
//   overlay := tessera.NewFlagOverlay("myapp").
//       String("listen", "server/address", ":8080", "Listen address").
//       Bool("debug", "log/debug", false, "Enable debug logging")
//   if err := overlay.Parse(os.Args[1:]); err != nil { ... }
//   overlay.Apply(root.Tree())
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"os"
	"strconv"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// ErrHelpRequested is returned by Parse when -h or --help is present.
var ErrHelpRequested = errors.New(ErrCodeInvalidConfig, "help requested")

type flagKind int

const (
	kindString flagKind = iota
	kindInt
	kindBool
	kindDuration
	kindStrings
)

type flagBinding struct {
	name string
	path string
	key  string
	kind flagKind
}

// FlagOverlay maps flags onto tree keys.
type FlagOverlay struct {
	flags    *flashflags.FlagSet
	appName  string
	bindings []flagBinding
}

// NewFlagOverlay creates an overlay whose environment variables are
// prefixed with the upper-cased appName.
func NewFlagOverlay(appName string) *FlagOverlay {
	return &FlagOverlay{
		flags:   flashflags.New(appName),
		appName: appName,
	}
}

// SetDescription sets the description shown in help output.
func (o *FlagOverlay) SetDescription(description string) *FlagOverlay {
	o.flags.SetDescription(description)
	return o
}

// SetVersion sets the version shown in help output.
func (o *FlagOverlay) SetVersion(version string) *FlagOverlay {
	o.flags.SetVersion(version)
	return o
}

// bind records that flag name targets keyPath ("section/sub/key").
func (o *FlagOverlay) bind(name, keyPath string, kind flagKind) {
	path, key := "", keyPath
	if i := strings.LastIndex(keyPath, PathSeparator); i >= 0 {
		path, key = keyPath[:i], keyPath[i+1:]
	}
	o.bindings = append(o.bindings, flagBinding{name: name, path: path, key: key, kind: kind})
}

// String binds a string flag to keyPath.
func (o *FlagOverlay) String(name, keyPath, defaultValue, usage string) *FlagOverlay {
	o.flags.String(name, defaultValue, usage)
	o.bind(name, keyPath, kindString)
	return o
}

// Int binds an integer flag to keyPath.
func (o *FlagOverlay) Int(name, keyPath string, defaultValue int, usage string) *FlagOverlay {
	o.flags.Int(name, defaultValue, usage)
	o.bind(name, keyPath, kindInt)
	return o
}

// Bool binds a boolean flag to keyPath.
func (o *FlagOverlay) Bool(name, keyPath string, defaultValue bool, usage string) *FlagOverlay {
	o.flags.Bool(name, defaultValue, usage)
	o.bind(name, keyPath, kindBool)
	return o
}

// Duration binds a duration flag to keyPath.
func (o *FlagOverlay) Duration(name, keyPath string, defaultValue time.Duration, usage string) *FlagOverlay {
	o.flags.Duration(name, defaultValue, usage)
	o.bind(name, keyPath, kindDuration)
	return o
}

// StringSlice binds a comma-separated list flag to keyPath.
func (o *FlagOverlay) StringSlice(name, keyPath string, defaultValue []string, usage string) *FlagOverlay {
	o.flags.StringSlice(name, defaultValue, usage)
	o.bind(name, keyPath, kindStrings)
	return o
}

// Parse parses args. It returns ErrHelpRequested for -h and --help.
func (o *FlagOverlay) Parse(args []string) error {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return ErrHelpRequested
		}
	}
	if err := o.flags.Parse(args); err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse command-line flags")
	}
	return nil
}

// PrintUsage prints the flag help.
func (o *FlagOverlay) PrintUsage() {
	o.flags.PrintHelp()
}

// Flags returns the names of the registered flags.
func (o *FlagOverlay) Flags() []string {
	var names []string
	o.flags.VisitAll(func(flag *flashflags.Flag) {
		names = append(names, flag.Name())
	})
	return names
}

// EnvKey returns the environment variable consulted for a flag:
// "server-port" in app "myapp" reads MYAPP_SERVER_PORT.
func (o *FlagOverlay) EnvKey(flagName string) string {
	return strings.ToUpper(o.appName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}

func (o *FlagOverlay) value(b flagBinding) string {
	switch b.kind {
	case kindInt:
		return strconv.Itoa(o.flags.GetInt(b.name))
	case kindBool:
		return strconv.FormatBool(o.flags.GetBool(b.name))
	case kindDuration:
		return o.flags.GetDuration(b.name).String()
	case kindStrings:
		return strings.Join(o.flags.GetStringSlice(b.name), ", ")
	default:
		return o.flags.GetString(b.name)
	}
}

// Apply writes the bound flags into the tree rooted at n and returns the
// number of keys it changed.
func (o *FlagOverlay) Apply(n *Node) int {
	changed := 0
	for _, b := range o.bindings {
		target := n.Node(b.path)
		old, exists := target.Lookup(b.key)

		var value string
		switch {
		case o.flags.Changed(b.name):
			value = o.value(b)
		case os.Getenv(o.EnvKey(b.name)) != "":
			value = os.Getenv(o.EnvKey(b.name))
		case exists:
			continue
		default:
			value = o.value(b)
		}

		if !exists || old != value {
			target.Put(b.key, value)
			changed++
		}
	}
	return changed
}
