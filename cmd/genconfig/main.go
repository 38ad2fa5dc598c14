// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig() annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/dispresence/internal/config"
)

// outPath is relative to internal/config, where go generate runs. The repo
// root's configdata.go embeds the file from there.
const outPath = "../../config.default.toml"

func main() {
	result, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote config.default.toml\n")
}

// ///////////////////////////////////////////////
// Rendering
// ///////////////////////////////////////////////

// render encodes cfg as TOML and annotates each key with its doc comment and
// commented-out alternatives. Documented keys the encoder left out are
// appended to their section as comments.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# dispresence settings",
		"# ///////////////////////////////////////////////",
		"",
	}

	var section []string
	emitted := map[string]bool{}

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			// spacing is managed below
		case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
			out = appendOmitted(out, docs, section, emitted)

			name := strings.Trim(trimmed, "[] ")
			section = parseSectionPath(name)
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
			out = appendComment(out, docs[name].Comment)
			out = append(out, trimmed)
		case !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#"):
			out = append(out, trimmed)
		default:
			key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
			path := strings.Join(append(append([]string{}, section...), key), ".")
			emitted[path] = true

			doc := docs[path]
			out = appendComment(out, doc.Comment)
			out = append(out, trimmed)
			for _, alt := range doc.Alternatives {
				out = append(out, "# "+alt)
			}
		}
	}
	out = appendOmitted(out, docs, section, emitted)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

// appendComment appends each line of comment prefixed with "# ".
func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// appendOmitted appends commented-out entries for documented keys of the
// current section that the encoder did not emit. Keys are sorted for
// deterministic output.
func appendOmitted(out []string, docs map[string]config.FieldDoc, section []string, emitted map[string]bool) []string {
	if len(section) == 0 {
		return out
	}
	prefix := strings.Join(section, ".") + "."

	var omitted []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := docs[path]
		out = append(out, "")
		out = appendComment(out, doc.Comment)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
		emitted[path] = true
	}
	return out
}

// parseSectionPath splits a dotted TOML section header (e.g. "worker.retry")
// into its path segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName returns a display name for a TOML section header: its last
// dotted segment with the first letter capitalized.
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
