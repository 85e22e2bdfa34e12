package utils

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

var unsafeFilenameChars = regexp.MustCompile(`[\x00-\x1f<>:"|?*]+`)

func GetRandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// RenewOutputPath returns the first "name-(n).ext" sibling of outputPath
// that does not exist yet.
func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

// SanitizeFilename makes a title usable as a single path element.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", " - ")
	name = strings.ReplaceAll(name, `\`, " - ")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SplitOutputPath separates an -o style argument into a directory and a
// file name. A trailing separator or an existing directory means no name.
func SplitOutputPath(outputPath, defaultDir string) (string, string) {
	if outputPath == "" {
		return defaultDir, ""
	}
	if strings.HasSuffix(outputPath, string(os.PathSeparator)) || strings.HasSuffix(outputPath, "/") {
		return filepath.Clean(outputPath), ""
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return outputPath, ""
	}
	dir := filepath.Dir(outputPath)
	if !filepath.IsAbs(outputPath) && dir == "." && defaultDir != "" {
		dir = defaultDir
	}
	return dir, filepath.Base(outputPath)
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(bytes)/elapsed)) + "/s"
}
