package redis

import "fmt"

const (
	// KeyPrefixReport is the prefix for report documents
	KeyPrefixReport = "shipcheck:report:"
	// KeyPrefixTarget is the prefix for per-target report indexes
	KeyPrefixTarget = "shipcheck:target:"
	// KeyAllTargets is the key for the set of target names with reports
	KeyAllTargets = "shipcheck:targets:all"
)

// ReportKey returns the Redis key for a report by ID
func ReportKey(id string) string {
	return KeyPrefixReport + id
}

// TargetReportsKey returns the sorted set of report IDs for a target, scored by start time
func TargetReportsKey(target string) string {
	return KeyPrefixTarget + target + ":reports"
}

// AllTargetsKey returns the key for the set of all target names
func AllTargetsKey() string {
	return KeyAllTargets
}

// ExtractReportID extracts the report ID from a Redis key
func ExtractReportID(key string) (string, error) {
	if len(key) <= len(KeyPrefixReport) || key[:len(KeyPrefixReport)] != KeyPrefixReport {
		return "", fmt.Errorf("invalid report key: %s", key)
	}
	return key[len(KeyPrefixReport):], nil
}
