package repoloader

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFileSize is the largest file that is indexed.
const MaxFileSize int64 = 500 * 1024

// SkipDirs are never descended into.
var SkipDirs = []string{
	"node_modules", ".git", ".next", "dist", "build", "out",
	"__pycache__", ".venv", "venv", ".idea", ".vscode",
	"coverage", ".nyc_output", "vendor", "target",
}

// CodeExtensions lists the file suffixes that are indexed. A file is
// eligible when its name ends with one of them, so dotfiles such as
// ".gitignore" and compound suffixes such as ".env.example" match too.
var CodeExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".py", ".java", ".go", ".rs", ".rb", ".php",
	".c", ".cpp", ".h", ".hpp", ".cs", ".swift", ".kt", ".scala",
	".html", ".css", ".scss", ".sass", ".less",
	".json", ".yaml", ".yml", ".toml", ".xml",
	".md", ".mdx", ".txt", ".rst",
	".sql", ".sh", ".bash", ".zsh", ".ps1",
	".dockerfile", ".dockerignore", ".gitignore",
	".env.example", ".eslintrc", ".prettierrc",
}

var includePatterns = buildIncludePatterns(CodeExtensions)

func buildIncludePatterns(exts []string) []string {
	patterns := make([]string, 0, len(exts))
	for _, ext := range exts {
		patterns = append(patterns, "**/*"+ext)
	}
	return patterns
}

func shouldSkipDir(name string) bool {
	for _, dir := range SkipDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// isEligible reports whether relPath matches the extension allow-list.
func isEligible(relPath string) bool {
	normalized := strings.ToLower(filepath.ToSlash(relPath))

	for _, pattern := range includePatterns {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
