// Package resolver maps a normalized request path and protocol to the
// first existing, regular, in-root file among an ordered set of candidate
// suffixes.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"rubyshd/internal/model"
)

// Result is a resolved file: its absolute path (for reading/caching) and the
// candidate suffix that matched, which the pipeline uses to decide whether
// the file needs templating or Markdown conversion.
type Result struct {
	AbsolutePath string
	Suffix       string
}

// directoryCandidates and fileCandidates list the suffix candidates in
// resolution order: the bare ".hbs" form is checked before protocol-specific
// suffixes so a protocol-agnostic template can own both surfaces, and raw
// files always outrank their templated equivalent.
func directoryCandidates(protocol model.Protocol) []string {
	switch protocol {
	case model.ProtocolGemini:
		return []string{"index.hbs", "index.gmi", "index.gmi.hbs"}
	default:
		return []string{"index.hbs", "index.htm", "index.htm.hbs", "index.html", "index.html.hbs"}
	}
}

func fileCandidates(protocol model.Protocol) []string {
	switch protocol {
	case model.ProtocolGemini:
		return []string{"", ".hbs", ".gmi", ".gmi.hbs", ".md", ".md.hbs"}
	default:
		return []string{"", ".hbs", ".htm", ".htm.hbs", ".html", ".html.hbs", ".md", ".md.hbs"}
	}
}

// Resolve finds the first existing, in-root, regular file for path under
// root, trying directory-index candidates if path names a directory and
// file-stem candidates otherwise. It fails with model.KindNotFound if no
// candidate matches, including when the joined path escapes root via a
// symlink (the resolver treats an out-of-root resolution identically to a
// missing file, never surfacing where it actually pointed).
func Resolve(root string, path string, protocol model.Protocol) (Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Result{}, model.NewError(model.KindInternalError, err)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return Result{}, model.NewError(model.KindInternalError, err)
	}

	joined := filepath.Join(absRoot, filepath.FromSlash(path))

	var candidates []string
	if isDirectory(joined) {
		candidates = directoryCandidates(protocol)
	} else {
		candidates = fileCandidates(protocol)
	}

	for _, suffix := range candidates {
		candidate := joined + suffix
		if isDirectory(joined) {
			// directory candidates are filenames within the directory, not
			// suffixes appended to it
			candidate = filepath.Join(joined, suffix)
		}

		if resolved, ok := regularFileInRoot(candidate, absRoot); ok {
			return Result{AbsolutePath: resolved, Suffix: suffix}, nil
		}
	}

	return Result{}, model.NewError(model.KindNotFound, nil)
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// regularFileInRoot stats candidate, and if it is a regular file, resolves
// symlinks and confirms the canonical path is still inside root. The
// invariant this enforces: the resolver never returns a path outside the
// public root after symlink resolution.
func regularFileInRoot(candidate string, root string) (string, bool) {
	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", false
	}

	rootWithSep := root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if resolved != root && !strings.HasPrefix(resolved, rootWithSep) {
		return "", false
	}

	return resolved, true
}
