package hermes

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

func isLocalEnv(env string) bool {
	return env == "local"
}

// generateFilename generates a filename based on name and current date
func generateFilename(name, ext string) string {
	// Replace characters not allowed in file names
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range invalidChars {
		name = strings.ReplaceAll(name, char, "_")
	}

	currentDate := time.Now().Format("2006-01-02")
	return currentDate + "_" + name + "." + ext
}

func generateExportFileName(directory, appName, job, ext string) string {
	return filepath.Join(directory, appName, fmt.Sprintf("%s_%s.%s", time.Now().Format("2006_01_02"), job, ext))
}

// splitFlag turns "--name=value" into its name and value.
func splitFlag(arg string) (string, string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, _ := strings.Cut(arg, "=")
	return name, value
}

func getBaseUrl(urlString string) (string, error) {
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return "", err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("not an absolute url: %s", urlString)
	}
	return parsedURL.Scheme + "://" + parsedURL.Host, nil
}

func contains(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
