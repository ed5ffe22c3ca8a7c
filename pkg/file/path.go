package file

import (
	"path/filepath"
	"strings"
)

// ExtractedDir returns the chunk directory derived from a source corpus file:
// <dir>/<base without ext>_extracted.
func ExtractedDir(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return filepath.Join(dir, base+"_extracted")
}

// TranslatedDir returns the output directory paired with an extracted chunk
// directory: <extractedDir>_translated.
func TranslatedDir(extractedDir string) string {
	return strings.TrimRight(extractedDir, "/\\") + "_translated"
}

// MergedPath returns the default merge output file for a chunk directory:
// <parent>/<foldername>_merged.json.
func MergedPath(folder string) string {
	clean := filepath.Clean(folder)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"_merged.json")
}

// ReplaceExt swaps the extension of path with ext (leading dot optional).
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}
