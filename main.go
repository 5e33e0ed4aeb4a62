// proforma parses ProForma proteoform notation and reports the result in TOON format.
package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/proforma/internal/config"
	"github.com/phobologic/proforma/internal/discover"
	"github.com/phobologic/proforma/internal/index"
	"github.com/phobologic/proforma/internal/lang"
	"github.com/phobologic/proforma/internal/model"
	"github.com/phobologic/proforma/internal/parse"
	"github.com/phobologic/proforma/internal/proforma"
	"github.com/phobologic/proforma/internal/ranking"
	"github.com/phobologic/proforma/internal/toon"
)

var version = "dev"

// exprSource is the Notation.Source used for notations given with -e.
const exprSource = "-e"

func main() {
	if err := dispatch(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "init":
			return runInit(args[1:], stdout, stderr)
		case "repl":
			return runRepl(args[1:], stdout, stderr)
		}
	}
	return run(args, stdout, stderr)
}

// runOptions holds the flag values of the report command.
type runOptions struct {
	exprMode     bool
	legacy       bool
	strict       bool
	errorsOnly   bool
	showVersion  bool
	maxEntries   int
	maxFileSize  int
	formats      string
	modFilter    string
	sourceFilter string
	cachePath    string
	configPath   string
	logLevel     string
	logFormat    string
}

// newRunFlags defines the report command's flags. The init subcommand
// documents the same set.
func newRunFlags(output io.Writer) (*flag.FlagSet, *runOptions) {
	fs := flag.NewFlagSet("proforma", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &runOptions{}
	fs.BoolVar(&opts.exprMode, "e", false, "treat arguments as notation strings")
	fs.BoolVar(&opts.legacy, "legacy", false, "accept legacy notation syntax")
	fs.BoolVar(&opts.strict, "strict", false, "fail if any notation does not parse")
	fs.BoolVar(&opts.errorsOnly, "errors-only", false, "report only notations that fail to parse")
	fs.IntVar(&opts.maxEntries, "n", 0, "maximum number of entries to include")
	fs.IntVar(&opts.maxEntries, "max-entries", 0, "maximum number of entries to include")
	fs.IntVar(&opts.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "skip files larger than this many bytes")
	fs.StringVar(&opts.formats, "f", "", "comma-separated file formats to include")
	fs.StringVar(&opts.formats, "formats", "", "comma-separated file formats to include")
	fs.StringVar(&opts.modFilter, "mod", "", "only entries with a modification containing this text")
	fs.StringVar(&opts.sourceFilter, "source", "", "only entries from sources containing this text")
	fs.StringVar(&opts.cachePath, "cache", "", "cache file path")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	fs.BoolVar(&opts.showVersion, "V", false, "show version and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "show version and exit")
	return fs, opts
}

func run(args []string, stdout, stderr io.Writer) error {
	fs, opts := newRunFlags(stderr)

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "proforma %s\n", version)
		return nil
	}

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}

	// Flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "legacy":
			cfg.LegacySyntax = opts.legacy
		case "strict":
			cfg.Strict = opts.strict
		case "n", "max-entries":
			cfg.MaxEntries = opts.maxEntries
		case "max-file-size":
			cfg.MaxFileSize = opts.maxFileSize
		case "log-level":
			cfg.LogLevel = opts.logLevel
		case "log-format":
			cfg.LogFormat = opts.logFormat
		}
	})

	if err := cfg.Validate(lang.Names()); err != nil {
		return err
	}
	for ext, name := range cfg.Extensions {
		if err := lang.Register(ext, name); err != nil {
			return fmt.Errorf("registering %s: %w", ext, err)
		}
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	parser := proforma.NewParser(cfg.LegacySyntax)

	var (
		name        string
		entries     []model.Entry
		writeCache  string
		cacheHeader string
	)

	if opts.exprMode {
		if fs.NArg() == 0 {
			return fmt.Errorf("no notations given")
		}
		name = exprSource
		notations := make([]model.Notation, fs.NArg())
		for i, arg := range fs.Args() {
			notations[i] = model.Notation{Text: arg, Source: exprSource, Line: i + 1}
		}
		entries = parseNotations(parser, notations)
	} else {
		var formatFilter []string
		if opts.formats != "" {
			for _, f := range strings.Split(opts.formats, ",") {
				f = strings.TrimSpace(f)
				if _, ok := lang.Formats[f]; !ok {
					return fmt.Errorf("unsupported format %q", f)
				}
				formatFilter = append(formatFilter, f)
			}
		}

		root := "."
		if fs.NArg() > 0 {
			root = fs.Arg(0)
		}

		root, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}

		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("root path: %w", err)
		}
		name = filepath.Base(root)

		var files []discover.FileEntry
		if info.IsDir() {
			files, err = discover.Files(root, formatFilter)
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
		} else {
			format := lang.ForExtension(filepath.Ext(root))
			if format == "" {
				return fmt.Errorf("%s: unsupported file type", root)
			}
			files = []discover.FileEntry{{Path: filepath.Base(root), Format: format}}
			root = filepath.Dir(root)
		}
		if len(files) == 0 {
			return fmt.Errorf("no notation files found")
		}
		logger.Debug("discovered notation files", "root", root, "count", len(files))

		// Filtered and strict runs bypass the cache. Other runs reuse it when
		// no file changed and the key still matches.
		useCache := opts.cachePath != "" && !cfg.Strict && !opts.errorsOnly && opts.modFilter == "" && opts.sourceFilter == "" && cfg.MaxEntries == 0
		key := cacheKey(files, cfg)
		if useCache && cacheIsFresh(opts.cachePath, root, files) {
			if data, ok := readCache(opts.cachePath, key); ok {
				logger.Debug("using cached report", "cache", opts.cachePath)
				_, _ = stdout.Write(data)
				return nil
			}
		}

		// Filter by size
		files = filterBySize(root, files, cfg.MaxFileSize, logger)
		if len(files) == 0 {
			return fmt.Errorf("no notation files found (all exceeded size limit)")
		}

		entries = processFilesConcurrent(root, files, parser, logger)
		if len(entries) == 0 {
			return fmt.Errorf("no notations found")
		}

		if useCache {
			writeCache = opts.cachePath
			cacheHeader = key
		}
	}

	rep := buildReport(name, entries, opts.sourceFilter, opts.modFilter, opts.errorsOnly, cfg.MaxEntries)
	logger.Debug("parsed notations", "total", len(entries), "invalid", countInvalid(entries))

	output := toon.Encode(rep)
	if writeCache != "" {
		if err := os.WriteFile(writeCache, []byte(cacheHeader+"\n"+output+"\n"), 0o644); err != nil {
			logger.Warn("failed to write cache", "cache", writeCache, "error", err)
		}
	}
	_, _ = fmt.Fprintln(stdout, output)

	if n := countInvalid(entries); cfg.Strict && n > 0 {
		return fmt.Errorf("%d of %d notations failed to parse", n, len(entries))
	}
	return nil
}

func buildReport(name string, entries []model.Entry, sourceFilter, modFilter string, errorsOnly bool, maxEntries int) *model.Report {
	rep := &model.Report{
		Name:          name,
		Entries:       entries,
		Modifications: index.BuildModificationIndex(entries),
	}
	if sourceFilter != "" {
		rep = ranking.FilterBySource(rep, sourceFilter)
	}
	if modFilter != "" {
		rep = ranking.FilterByModification(rep, modFilter)
	}
	if errorsOnly {
		rep = ranking.InvalidOnly(rep)
	}
	return ranking.SelectEntries(rep, maxEntries)
}

func countInvalid(entries []model.Entry) int {
	n := 0
	for i := range entries {
		if !entries[i].Valid() {
			n++
		}
	}
	return n
}

func parseNotations(parser *proforma.Parser, notations []model.Notation) []model.Entry {
	entries := make([]model.Entry, len(notations))
	for i, n := range notations {
		entries[i].Notation = n
		term, err := parser.Parse(n.Text)
		if err != nil {
			entries[i].Err = err.Error()
			continue
		}
		entries[i].Term = term
	}
	return entries
}

// cacheKey digests what shapes a cached report besides file contents: the
// version, the discovered files, and settings that change discovery or
// parsing.
func cacheKey(files []discover.FileEntry, cfg *config.Config) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00legacy=%t\x00max-file-size=%d\x00", version, cfg.LegacySyntax, cfg.MaxFileSize)

	exts := make([]string, 0, len(cfg.Extensions))
	for ext, format := range cfg.Extensions {
		exts = append(exts, ext+"="+format)
	}
	slices.Sort(exts)
	for _, e := range exts {
		_, _ = fmt.Fprintf(h, "ext %s\x00", e)
	}
	for _, f := range files {
		_, _ = fmt.Fprintf(h, "file %s %s\x00", f.Format, f.Path)
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

const cacheKeyPrefix = "# proforma-cache "

// readCache returns the cached report when its header line equals key.
func readCache(path, key string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	header, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(header) != key {
		return nil, false
	}
	return body, true
}

func cacheIsFresh(cachePath, root string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, logger *slog.Logger) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			logger.Warn("skipped oversized file", "path", f.Path, "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// processFilesConcurrent extracts and parses the notations of every file.
// Entries keep file order, then line order within a file.
func processFilesConcurrent(root string, files []discover.FileEntry, parser *proforma.Parser, logger *slog.Logger) []model.Entry {
	type result struct {
		index   int
		entries []model.Entry
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own tree-sitter parsers; the notation
			// parser is shared.
			extractors := make(map[string]*extractorPair)

			for idx := range work {
				f := files[idx]
				ep, ok := extractors[f.Format]
				if !ok {
					format := lang.Formats[f.Format]
					q, err := format.GetNotationQuery()
					if err != nil {
						logger.Warn("failed to compile query", "format", f.Format, "error", err)
						continue
					}
					ep = &extractorPair{format: format, parser: format.NewParser(), query: q}
					extractors[f.Format] = ep
				}

				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					logger.Warn("failed to read file", "path", f.Path, "error", err)
					continue
				}

				notations := parse.ExtractNotations(ep.format, ep.parser, ep.query, source, f.Path)
				results <- result{index: idx, entries: parseNotations(parser, notations)}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([][]model.Entry, len(files))
	for r := range results {
		indexed[r.index] = r.entries
	}

	var entries []model.Entry
	for _, es := range indexed {
		entries = append(entries, es...)
	}
	return entries
}

type extractorPair struct {
	format *lang.Format
	parser *sitter.Parser
	query  *sitter.Query
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-n": true, "--n": true,
	"-max-entries": true, "--max-entries": true,
	"-max-file-size": true, "--max-file-size": true,
	"-f": true, "--f": true,
	"-formats": true, "--formats": true,
	"-mod": true, "--mod": true,
	"-source": true, "--source": true,
	"-cache": true, "--cache": true,
	"-config": true, "--config": true,
	"-log-level": true, "--log-level": true,
	"-log-format": true, "--log-format": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	// Keep "--" so positional arguments that look like flags stay positional.
	return append(append(flags, "--"), positional...)
}
