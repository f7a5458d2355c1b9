package codesign

import (
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"
)

// GetAppBundleID reads the bundle ID from an app's Info.plist
func GetAppBundleID(appPath string) (string, error) {
	return readInfoPlistString(appPath, "CFBundleIdentifier")
}

// GetAppExecutableName reads the executable name from an app's Info.plist
func GetAppExecutableName(appPath string) (string, error) {
	return readInfoPlistString(appPath, "CFBundleExecutable")
}

// GetAppExecutablePath returns the full path of the app's main executable
func GetAppExecutablePath(appPath string) (string, error) {
	name, err := GetAppExecutableName(appPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(appPath, name), nil
}

func readInfoPlistString(appPath, key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(appPath, "Info.plist"))
	if err != nil {
		return "", fmt.Errorf("failed to read Info.plist: %w", err)
	}

	info, err := parseInfoPlist(data)
	if err != nil {
		return "", err
	}

	value, ok := info[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s not found in Info.plist", key)
	}
	return value, nil
}

func parseInfoPlist(data []byte) (map[string]interface{}, error) {
	var info map[string]interface{}
	_, err := plist.Unmarshal(data, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist: %w", err)
	}
	return info, nil
}
