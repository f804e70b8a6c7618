package config

import "os"

const (
	usernameEnvVar  = "LINUXDO_USERNAME"
	passwordEnvVar  = "LINUXDO_PASSWORD"
	cacheFileEnvVar = "CHECKIN_CACHE"
	stateFileEnvVar = "LINUXDO_STATE"
	logLevelEnvVar  = "LOG_LEVEL"
)

// LinuxDoUsername returns the identity-provider username override.
func LinuxDoUsername() string {
	return GetEnv(usernameEnvVar, "")
}

// LinuxDoPassword returns the identity-provider password override.
func LinuxDoPassword() string {
	return GetEnv(passwordEnvVar, "")
}

// CacheFile returns the cookie cache path, with a default.
func CacheFile(fallback string) string {
	return GetEnv(cacheFileEnvVar, fallback)
}

// StateFile returns the browser storage-state path, with a default.
func StateFile(fallback string) string {
	return GetEnv(stateFileEnvVar, fallback)
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
