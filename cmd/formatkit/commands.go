package main

import (
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/format"
	"github.com/c360/formatkit/registry"
)

// Formats whose values are raw bytes or structured documents rather than text.
var (
	byteFormats = []string{"binary", "png", "jpeg", "gif", "bmp", "tiff", "webp", "cbor", "protobuf"}
	jsonFormats = []string{"dict", "dict_list"}
)

// optionsFlag collects repeated --opt key=value pairs
type optionsFlag converter.Options

func (o optionsFlag) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func (o optionsFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("option %q must be key=value", s)
	}
	o[strings.TrimSpace(key)] = parseOptionValue(value)
	return nil
}

// parseOptionValue types a command line value: numbers and booleans become
// int, float64 and bool, anything else stays a string.
func parseOptionValue(v string) any {
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// newFlagSet creates a command flag set writing usage to stderr
func (a *app) newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(a.stderr, "Usage: %s %s %s\n\nOptions:\n", appName, name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseCommand parses command flags, mapping failures to errUsage.
func parseCommand(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, errUsage
	}
	return true, nil
}

func runConvert(a *app, args []string) error {
	fs := a.newFlagSet("convert", "--from FORMAT --to FORMAT [options] [DATA]")
	from := fs.String("from", "", "Source format (required)")
	to := fs.String("to", "", "Target format (required)")
	in := fs.String("in", "", "Read input from FILE, - for stdin (default: the DATA argument)")
	out := fs.String("out", "", "Write the result to FILE (default: stdout)")
	input := fs.String("input", "auto", "Input interpretation: auto, text, bytes, base64, json")
	binaryOut := fs.Bool("binary-out", false, "Write byte results to stdout raw instead of base64")
	opts := optionsFlag{}
	fs.Var(opts, "opt", "Converter option as key=value (repeatable)")

	if ok, err := parseCommand(fs, args); !ok {
		return err
	}
	if *from == "" || *to == "" {
		_, _ = fmt.Fprintln(a.stderr, "convert: --from and --to are required")
		fs.Usage()
		return errUsage
	}

	raw, stream, err := a.readInput(*in, fs.Args())
	if err != nil {
		return err
	}
	data, err := decodeInput(raw, format.Normalize(*from), *input, stream)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	reg, err := a.buildRegistry(cfg, nil)
	if err != nil {
		return err
	}

	result, err := reg.Convert(data, *from, *to, converter.Options(opts))
	if err != nil {
		return err
	}
	return a.writeOutput(result, *out, *binaryOut)
}

// readInput returns the payload and whether it came from a file or stdin.
func (a *app) readInput(path string, args []string) ([]byte, bool, error) {
	switch {
	case path == "" && len(args) == 1:
		return []byte(args[0]), false, nil
	case path == "":
		return nil, false, fmt.Errorf("convert: expected exactly one DATA argument or --in, got %d arguments", len(args))
	case len(args) > 0:
		return nil, false, fmt.Errorf("convert: DATA argument cannot be combined with --in")
	case path == "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, false, errors.Wrap(err, "convert", "readInput", "read stdin")
		}
		return b, true, nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, false, errors.Wrap(err, "convert", "readInput", "read "+path)
		}
		return b, true, nil
	}
}

// decodeInput turns raw input into the value the source format expects. In
// auto mode byte formats get raw bytes, dict formats get parsed JSON and
// everything else is text with a trailing newline from files trimmed.
func decodeInput(raw []byte, from, mode string, stream bool) (any, error) {
	if mode == "auto" {
		switch {
		case slices.Contains(byteFormats, from):
			mode = "bytes"
		case slices.Contains(jsonFormats, from):
			mode = "json"
		default:
			s := string(raw)
			if stream {
				s = strings.TrimRight(s, "\r\n")
			}
			return s, nil
		}
	}

	switch mode {
	case "text":
		return string(raw), nil
	case "bytes":
		return raw, nil
	case "base64":
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, errors.Validationf(from, "input is not valid base64: %v", err)
		}
		return b, nil
	case "json":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Validationf(from, "input is not valid JSON: %v", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("convert: unknown --input mode %q (auto, text, bytes, base64, json)", mode)
}

// writeOutput prints text as is, bytes raw to files or base64 to a
// terminal, and anything else as indented JSON.
func (a *app) writeOutput(result any, path string, binaryOut bool) error {
	var payload []byte
	switch v := result.(type) {
	case []byte:
		switch {
		case path != "" || binaryOut:
			payload = v
		default:
			payload = []byte(base64.StdEncoding.EncodeToString(v) + "\n")
		}
	case string:
		payload = []byte(v)
		if path == "" && !strings.HasSuffix(v, "\n") {
			payload = append(payload, '\n')
		}
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "convert", "writeOutput", "encode result")
		}
		payload = append(b, '\n')
	}

	if path == "" {
		_, err := a.stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrap(err, "convert", "writeOutput", "write "+path)
	}
	return nil
}

// inspect parses the shared flags of the read-only commands and builds the
// registry.
func (a *app) inspect(name, usage string, args []string, extra func(*flag.FlagSet)) (*registry.Registry, *flag.FlagSet, bool, error) {
	fs := a.newFlagSet(name, usage)
	fs.String("output", "table", "Output format: table, json")
	if extra != nil {
		extra(fs)
	}
	if ok, err := parseCommand(fs, args); !ok {
		return nil, nil, false, err
	}
	if o := fs.Lookup("output").Value.String(); o != "table" && o != "json" {
		return nil, nil, false, fmt.Errorf("%s: --output must be table or json, got %q", name, o)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, false, err
	}
	reg, err := a.buildRegistry(cfg, nil)
	if err != nil {
		return nil, nil, false, err
	}
	return reg, fs, true, nil
}

func wantJSON(fs *flag.FlagSet) bool {
	return fs.Lookup("output").Value.String() == "json"
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runList(a *app, args []string) error {
	var filter string
	reg, fs, ok, err := a.inspect("list", "[--format NAME] [--output table|json]", args, func(fs *flag.FlagSet) {
		fs.StringVar(&filter, "format", "", "Only show conversions touching this format")
	})
	if !ok {
		return err
	}

	conversions := reg.ListConversions()
	if filter != "" {
		name := format.Normalize(filter)
		conversions = slices.DeleteFunc(conversions, func(c registry.Conversion) bool {
			return c.From != name && c.To != name
		})
	}

	if wantJSON(fs) {
		return a.printJSON(conversions)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FROM\tTO\tREVERSIBLE\tDESCRIPTION")
	for _, c := range conversions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", c.From, c.To, c.Reversible, c.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "\n%d conversions\n", len(conversions))
	return err
}

func runFormats(a *app, args []string) error {
	reg, fs, ok, err := a.inspect("formats", "[--output table|json]", args, nil)
	if !ok {
		return err
	}

	formats := reg.ListFormats()
	if wantJSON(fs) {
		return a.printJSON(formats)
	}
	for _, f := range formats {
		if _, err := fmt.Fprintln(a.stdout, f); err != nil {
			return err
		}
	}
	return nil
}

func runInfo(a *app, args []string) error {
	reg, fs, ok, err := a.inspect("info", "[--output table|json] FORMAT", args, nil)
	if !ok {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	info := reg.ConversionsFor(fs.Arg(0))
	if len(info.Incoming) == 0 && len(info.Outgoing) == 0 {
		return fmt.Errorf("unknown format '%s'. Available formats: %s",
			fs.Arg(0), strings.Join(reg.ListFormats(), ", "))
	}

	if wantJSON(fs) {
		return a.printJSON(info)
	}

	descriptions := make(map[string]string)
	for _, c := range reg.ListConversions() {
		if c.From == info.Format {
			descriptions[c.To] = c.Description
		}
	}

	_, _ = fmt.Fprintf(a.stdout, "Format: %s\n\nConverts to:\n", info.Format)
	for _, to := range info.Outgoing {
		_, _ = fmt.Fprintf(a.stdout, "  %-16s %s\n", to, descriptions[to])
	}
	_, _ = fmt.Fprintf(a.stdout, "\nConverts from:\n")
	for _, from := range info.Incoming {
		_, _ = fmt.Fprintf(a.stdout, "  %s\n", from)
	}
	return nil
}

func runStats(a *app, args []string) error {
	reg, fs, ok, err := a.inspect("stats", "[--output table|json]", args, nil)
	if !ok {
		return err
	}

	stats := reg.Stats()
	if wantJSON(fs) {
		return a.printJSON(stats)
	}
	_, err = fmt.Fprintf(a.stdout, "pairs:       %d\nformats:     %d\nregistered:  %d\n",
		stats.TotalPairs, stats.TotalFormats, stats.RegisteredCount)
	return err
}
