package runtime

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	tsyaml "github.com/smacker/go-tree-sitter/yaml"

	"github.com/jward/thicket/internal/lint"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".ttl":    lint.LangTurtle,
	".turtle": lint.LangTurtle,
	".yaml":   lint.LangYAML,
	".yml":    lint.LangYAML,
}

// langToGrammar maps language names to tree-sitter Language objects.
// Turtle has a hand-written parser and no entry here.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			lint.LangYAML: tsyaml.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// IsSupportedLanguage reports whether lang is a canonical language name.
func IsSupportedLanguage(lang string) bool {
	return lang == lint.LangTurtle || lang == lint.LangYAML
}

// GrammarForLanguage returns the tree-sitter Language for a canonical
// language name. Returns (nil, false) for languages without one.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}
