// Command wiredump inspects raw Protocol Buffers wire-format bytes
// without any schema: it walks tags field by field, printing field
// number, wire type, and value for each one it can parse.
//
// Usage:
//
//	wiredump dump [options] <file>...
//	wiredump check [options] <file>...
//	wiredump version
//
// Dump Command:
//
//	Print every field found in the input as field number, wire type,
//	and value. Length-delimited fields are dumped recursively as a
//	nested message whenever their bytes parse as one; otherwise they
//	are shown as a quoted string (if valid UTF-8) or a hex blob.
//
//	Options:
//	  -depth int   Maximum recursion depth when guessing at nested
//	               messages inside bytes fields (default 10)
//	  -raw         Never guess at nested messages; always show bytes
//	               fields as hex
//
// Check Command:
//
//	Walk the input without printing anything, reporting only whether
//	it parses as a well-formed sequence of tag/value pairs. Exits
//	non-zero and prints the first error encountered otherwise.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/blockberries/wirepb/internal/wire"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dump", "d":
		cmdDump(os.Args[2:])
	case "check", "c":
		cmdCheck(os.Args[2:])
	case "version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`wiredump -- raw Protocol Buffers wire-format inspector

Usage:
  wiredump <command> [options] <files>...

Commands:
  dump       Print every field found in the input
  check      Validate the input parses as well-formed wire bytes
  version    Print version information
  help       Print this help message

Run 'wiredump <command> -h' for command-specific help.`)
}

func cmdVersion() {
	fmt.Println("wiredump version 0.1.0")
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	maxDepth := fs.Int("depth", 10, "Maximum recursion depth when guessing at nested messages")
	raw := fs.Bool("raw", false, "Never guess at nested messages; always show bytes fields as hex")

	fs.Usage = func() {
		fmt.Println(`Usage: wiredump dump [options] <file>...

Print every field found in raw Protocol Buffers wire-format input.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files")
		fs.Usage()
		os.Exit(1)
	}

	hasErrors := false
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			hasErrors = true
			continue
		}
		if len(fs.Args()) > 1 {
			fmt.Printf("== %s ==\n", path)
		}
		if err := dumpFields(os.Stdout, data, 0, *maxDepth, *raw); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
			hasErrors = true
		}
	}

	if hasErrors {
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println(`Usage: wiredump check [options] <file>...

Validate that each input parses as a well-formed sequence of
Protocol Buffers tag/value pairs, without printing the fields.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files")
		fs.Usage()
		os.Exit(1)
	}

	hasErrors := false
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			hasErrors = true
			continue
		}
		if err := walkFields(data, func(fieldNum int, wt wire.WireType, value []byte) error {
			return nil
		}); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			hasErrors = true
			continue
		}
		fmt.Printf("ok: %s\n", path)
	}

	if hasErrors {
		os.Exit(1)
	}
}

// walkFields decodes data as a flat sequence of tag/value pairs,
// invoking visit once per field with the raw bytes of its value
// (the length-delimited payload itself for Bytes fields, not
// including its own length prefix).
func walkFields(data []byte, visit func(fieldNum int, wt wire.WireType, value []byte) error) error {
	total := len(data)
	for len(data) > 0 {
		fieldNum, wt, n, err := wire.DecodeTag(data)
		if err != nil {
			return fmt.Errorf("tag at offset %d: %w", total-len(data), err)
		}
		data = data[n:]

		switch wt {
		case wire.Varint:
			_, n, err := wire.DecodeUvarint(data)
			if err != nil {
				return fmt.Errorf("field %d: varint: %w", fieldNum, err)
			}
			if err := visit(fieldNum, wt, data[:n]); err != nil {
				return err
			}
			data = data[n:]
		case wire.Fixed64:
			if len(data) < 8 {
				return fmt.Errorf("field %d: truncated fixed64", fieldNum)
			}
			if err := visit(fieldNum, wt, data[:8]); err != nil {
				return err
			}
			data = data[8:]
		case wire.Fixed32:
			if len(data) < 4 {
				return fmt.Errorf("field %d: truncated fixed32", fieldNum)
			}
			if err := visit(fieldNum, wt, data[:4]); err != nil {
				return err
			}
			data = data[4:]
		case wire.Bytes:
			length, n, err := wire.DecodeUvarint(data)
			if err != nil {
				return fmt.Errorf("field %d: length prefix: %w", fieldNum, err)
			}
			data = data[n:]
			if length > uint64(len(data)) {
				return fmt.Errorf("field %d: length-delimited value exceeds remaining input", fieldNum)
			}
			if err := visit(fieldNum, wt, data[:length]); err != nil {
				return err
			}
			data = data[length:]
		case wire.StartGroup:
			depth, err := skipGroup(data, fieldNum)
			if err != nil {
				return fmt.Errorf("field %d: group: %w", fieldNum, err)
			}
			if err := visit(fieldNum, wt, nil); err != nil {
				return err
			}
			data = data[depth:]
		case wire.EndGroup:
			return fmt.Errorf("field %d: unmatched end-group tag", fieldNum)
		}
	}
	return nil
}

// skipGroup scans past a legacy group field (tags already positioned
// just after its StartGroup tag) and returns how many bytes it spans.
func skipGroup(data []byte, fieldNum int) (int, error) {
	start := len(data)
	remaining := data
	for {
		fn, wt, n, err := wire.DecodeTag(remaining)
		if err != nil {
			return 0, err
		}
		remaining = remaining[n:]
		if wt == wire.EndGroup {
			if fn != fieldNum {
				return 0, fmt.Errorf("mismatched end-group tag for field %d", fieldNum)
			}
			return start - len(remaining), nil
		}
		switch wt {
		case wire.Varint:
			_, n, err := wire.DecodeUvarint(remaining)
			if err != nil {
				return 0, err
			}
			remaining = remaining[n:]
		case wire.Fixed64:
			remaining = remaining[8:]
		case wire.Fixed32:
			remaining = remaining[4:]
		case wire.Bytes:
			length, n, err := wire.DecodeUvarint(remaining)
			if err != nil {
				return 0, err
			}
			remaining = remaining[n+int(length):]
		case wire.StartGroup:
			inner, err := skipGroup(remaining, fn)
			if err != nil {
				return 0, err
			}
			remaining = remaining[inner:]
		}
	}
}

// dumpFields prints one line per top-level field in data, recursing
// into length-delimited fields that look like nested messages.
func dumpFields(w *os.File, data []byte, depth, maxDepth int, rawBytes bool) error {
	indent := strings.Repeat("  ", depth)
	return walkFields(data, func(fieldNum int, wt wire.WireType, value []byte) error {
		switch wt {
		case wire.Varint:
			v, _, _ := wire.DecodeUvarint(value)
			fmt.Fprintf(w, "%sfield %d: %s = %d\n", indent, fieldNum, wt, v)
		case wire.Fixed32:
			v, _ := wire.DecodeFixed32(value)
			fmt.Fprintf(w, "%sfield %d: %s = %d (0x%08x)\n", indent, fieldNum, wt, v, v)
		case wire.Fixed64:
			v, _ := wire.DecodeFixed64(value)
			fmt.Fprintf(w, "%sfield %d: %s = %d (0x%016x)\n", indent, fieldNum, wt, v, v)
		case wire.StartGroup:
			fmt.Fprintf(w, "%sfield %d: group\n", indent, fieldNum)
		case wire.Bytes:
			if !rawBytes && depth < maxDepth && looksLikeMessage(value) {
				fmt.Fprintf(w, "%sfield %d: %s (%d bytes), parses as nested message:\n", indent, fieldNum, wt, len(value))
				if err := dumpFields(w, value, depth+1, maxDepth, rawBytes); err == nil {
					return nil
				}
			}
			if !rawBytes && utf8.Valid(value) {
				fmt.Fprintf(w, "%sfield %d: %s (%d bytes) = %q\n", indent, fieldNum, wt, len(value), string(value))
			} else {
				fmt.Fprintf(w, "%sfield %d: %s (%d bytes) = %s\n", indent, fieldNum, wt, len(value), hex.EncodeToString(value))
			}
		}
		return nil
	})
}

// looksLikeMessage reports whether data parses end to end as a
// sequence of well-formed tag/value pairs -- a heuristic, since any
// byte string can coincidentally satisfy this without actually being
// a submessage.
func looksLikeMessage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	err := walkFields(data, func(fieldNum int, wt wire.WireType, value []byte) error {
		return nil
	})
	return err == nil
}
