// Package language maps file names to fenced-code language tags and decides
// which files are text by their name alone.
package language

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"gopkg.in/yaml.v3"
)

//go:embed languages.yml
var defaultLanguages []byte

// FileName is the name of a user language file.
const FileName = "languages.yml"

// LanguageInfo holds the fields of one language entry.
type LanguageInfo struct {
	Type       string   `yaml:"type"` // e.g. programming, data, markup, prose
	Tag        string   `yaml:"tag"`  // fence info string; empty for plain text
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// LanguageMap maps language names (e.g. "Go") to their details.
type LanguageMap map[string]LanguageInfo

// Table is a parsed language map with lookup indexes.
type Table struct {
	Langs        LanguageMap
	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
	textExts     map[string]bool   // extra extensions treated as text
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := Parse(defaultLanguages)
	if err != nil {
		panic(fmt.Sprintf("language: embedded table: %v", err))
	}
	return t
}

// Parse builds a table from YAML.
func Parse(data []byte) (*Table, error) {
	var langs LanguageMap
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return nil, fmt.Errorf("parse language table: %w", err)
	}
	t := &Table{Langs: LanguageMap{}, textExts: map[string]bool{}}
	t.merge(langs)
	return t, nil
}

// Load returns the embedded table merged with the first languages.yml found
// in dirs. Entries in the user file replace embedded entries of the same name.
func Load(dirs ...string) (*Table, string, error) {
	t := Default()
	for _, dir := range dirs {
		path := filepath.Join(dir, FileName)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var langs LanguageMap
		if err := yaml.Unmarshal(data, &langs); err != nil {
			return t, path, fmt.Errorf("parse language file %s: %w", path, err)
		}
		t.merge(langs)
		return t, path, nil
	}
	return t, "", nil
}

func (t *Table) merge(langs LanguageMap) {
	for name, info := range langs {
		t.Langs[name] = info
	}
	t.extensionMap = make(map[string]string)
	t.filenameMap = make(map[string]string)
	for name, info := range t.Langs {
		for _, ext := range info.Extensions {
			ext = normalizeExt(ext)
			// Deterministic winner when two languages claim an extension.
			if prev, ok := t.extensionMap[ext]; !ok || name < prev {
				t.extensionMap[ext] = name
			}
		}
		for _, fname := range info.Filenames {
			if prev, ok := t.filenameMap[fname]; !ok || name < prev {
				t.filenameMap[fname] = name
			}
		}
	}
}

// AddTextExtensions marks additional extensions as text.
func (t *Table) AddTextExtensions(exts ...string) {
	for _, ext := range exts {
		if ext = normalizeExt(ext); ext != "." {
			t.textExts[ext] = true
		}
	}
}

// Lookup returns the language name for path. Exact file names take
// precedence over extensions.
func (t *Table) Lookup(path string) (string, bool) {
	if t == nil {
		return "", false
	}
	base := filepath.Base(path)
	if name, ok := t.filenameMap[base]; ok {
		return name, true
	}
	if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
		if name, ok := t.extensionMap[ext]; ok {
			return name, true
		}
	}
	return "", false
}

// Tag returns the fence info string for path, falling back to the first
// alias of the chroma lexer matching the file name.
func (t *Table) Tag(path string) string {
	if name, ok := t.Lookup(path); ok {
		return t.Langs[name].Tag
	}
	if lexer := lexers.Match(filepath.Base(path)); lexer != nil {
		if aliases := lexer.Config().Aliases; len(aliases) > 0 {
			return aliases[0]
		}
	}
	return ""
}

// IsText reports whether path is text judging by its name: a known language,
// an extension added with AddTextExtensions, a name chroma can highlight, or
// no extension at all.
func (t *Table) IsText(path string) bool {
	if _, ok := t.Lookup(path); ok {
		return true
	}
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" || ext == base {
		return true
	}
	if t != nil && t.textExts[ext] {
		return true
	}
	return lexers.Match(base) != nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
