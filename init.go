package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phobologic/proforma/internal/config"
	"github.com/phobologic/proforma/internal/lang"
)

const (
	sentinelStart = "<!-- proforma:start -->"
	sentinelEnd   = "<!-- proforma:end -->"
)

// runInit implements `proforma init`. It writes a usage section for the
// installed binary into a CLAUDE.md file, listing the formats and flags this
// build actually supports.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("proforma init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dryRun     bool
		configPath string
	)
	fs.BoolVar(&dryRun, "dry-run", false, "print the result instead of writing the file")
	fs.StringVar(&configPath, "config", "", "YAML config whose extra extensions the section lists")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: proforma init [flags] [path-to-CLAUDE.md]

Write a proforma usage section to a CLAUDE.md file (default ./CLAUDE.md).
The section lists the notation formats and report flags of this binary and
is replaced in place on later runs.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(lang.Names()); err != nil {
			return err
		}
		for ext, name := range cfg.Extensions {
			if err := lang.Register(ext, name); err != nil {
				return fmt.Errorf("registering %s: %w", ext, err)
			}
		}
	}

	section := generateSection()

	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote proforma section to %s\n", path)
	return nil
}

const sectionIntro = `## proforma: ProForma notation checker

Run ` + "`proforma`" + ` via the Bash tool before editing spectral libraries, search
panels, or fixtures that contain proteoform notation. It parses every
notation and reports residues, descriptors, tag groups, and errors as TOON
tables. Check ` + "`proforma --version`" + ` first and skip if it is not installed.

` + "```" + `bash
proforma                                   # every notation file under .
proforma -e 'EM[Oxidation]EVT[#g1]S[#g1]'  # notations given inline
proforma -errors-only -strict              # list failures, exit non-zero
proforma repl                              # interactive shell
` + "```" + `
`

const sectionOutput = `
**Reading the output:**

1. **Check ` + "`errors`" + ` first.** Each row names the source line and the
   character that stopped the parser.
2. **Use ` + "`descriptors`" + ` to locate modifications.** Rows give the site
   (n-term, residue, c-term, unlocalized), residue index, key, and value.
3. **Use ` + "`modifications`" + ` to audit vocabulary.** Misspelled names show
   up as single-use rows.`

// generateSection returns the sentinel-wrapped usage block. The format and
// flag lists come from the registry and the report flag set.
func generateSection() string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString(sectionIntro)

	b.WriteString("\n**Notation files** (text formats hold one notation per line, `#` starts a comment):\n\n")
	for _, name := range lang.Names() {
		exts := lang.Extensions(name)
		fmt.Fprintf(&b, "- %s: `%s`\n", name, strings.Join(exts, "`, `"))
	}

	b.WriteString("\n**Flags:**\n\n")
	for _, line := range flagSummary() {
		b.WriteString(line + "\n")
	}

	b.WriteString(sectionOutput + "\n")
	b.WriteString(sentinelEnd)
	return b.String()
}

// flagSummary lists the report flags, folding aliases that share a usage
// string into one line.
func flagSummary() []string {
	fs, _ := newRunFlags(io.Discard)

	var usages []string
	names := make(map[string][]string)
	defaults := make(map[string]string)
	fs.VisitAll(func(f *flag.Flag) {
		if _, ok := names[f.Usage]; !ok {
			usages = append(usages, f.Usage)
		}
		names[f.Usage] = append(names[f.Usage], "-"+f.Name)
		switch f.DefValue {
		case "", "false", "0":
		default:
			defaults[f.Usage] = f.DefValue
		}
	})

	lines := make([]string, len(usages))
	for i, usage := range usages {
		line := fmt.Sprintf("- `%s`: %s", strings.Join(names[usage], "`, `"), usage)
		if def, ok := defaults[usage]; ok {
			line += fmt.Sprintf(" (default %s)", def)
		}
		lines[i] = line
	}
	return lines
}

// applySection replaces the first sentinel block in content with section, or
// appends section after a blank line when no complete block exists.
func applySection(content, section string) string {
	if before, rest, ok := strings.Cut(content, sentinelStart); ok {
		if _, after, ok := strings.Cut(rest, sentinelEnd); ok {
			return before + section + after
		}
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
