package domain

import (
	"fmt"
	"strings"
)

const (
	DefaultHealthPath = "/api/health"
	DefaultPort       = 80
	DefaultLogTail    = 50
)

// Target is a deployed service to verify on a remote host.
type Target struct {
	Name         string `yaml:"name" json:"name"`
	InstanceID   string `yaml:"instance_id" json:"instance_id"`
	Container    string `yaml:"container" json:"container"`
	Port         int    `yaml:"port" json:"port"`
	HealthPath   string `yaml:"health_path" json:"health_path"`
	ExternalHost string `yaml:"external_host" json:"external_host,omitempty"`

	// Optional overrides for the generated shell commands.
	StatusCommand     string `yaml:"status_command" json:"status_command,omitempty"`
	HealthCommand     string `yaml:"health_command" json:"health_command,omitempty"`
	FallbackCommand   string `yaml:"fallback_command" json:"fallback_command,omitempty"`
	DiagnosticCommand string `yaml:"diagnostic_command" json:"diagnostic_command,omitempty"`
}

// WithDefaults fills empty fields. Container defaults to the target name.
func (t Target) WithDefaults(healthPath string) Target {
	if t.Container == "" {
		t.Container = t.Name
	}
	if t.Port == 0 {
		t.Port = DefaultPort
	}
	if t.HealthPath == "" {
		t.HealthPath = healthPath
	}
	if t.HealthPath == "" {
		t.HealthPath = DefaultHealthPath
	}
	if !strings.HasPrefix(t.HealthPath, "/") {
		t.HealthPath = "/" + t.HealthPath
	}
	return t
}

// StatusCmd prints the container status, or the not-running marker.
func (t Target) StatusCmd() string {
	if t.StatusCommand != "" {
		return t.StatusCommand
	}
	return fmt.Sprintf("docker ps --filter name=%s --format '{{.Status}}' | grep %s || echo '%s'",
		t.Container, MarkerUp, MarkerNotRunning)
}

func (t Target) HealthCmd() string {
	if t.HealthCommand != "" {
		return t.HealthCommand
	}
	return fmt.Sprintf("curl -s --max-time 5 http://localhost:%d%s || echo 'health check failed'",
		t.Port, t.HealthPath)
}

func (t Target) FallbackCmd() string {
	if t.FallbackCommand != "" {
		return t.FallbackCommand
	}
	return fmt.Sprintf("curl -s --max-time 5 http://localhost:%d/ || echo 'root check failed'", t.Port)
}

func (t Target) DiagnosticCmd() string {
	if t.DiagnosticCommand != "" {
		return t.DiagnosticCommand
	}
	return fmt.Sprintf("docker logs --tail %d %s 2>&1", DefaultLogTail, t.Container)
}

// ExternalHealthURL is empty when the target has no externally reachable host.
func (t Target) ExternalHealthURL() string {
	if t.ExternalHost == "" {
		return ""
	}
	host := strings.TrimSuffix(t.ExternalHost, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + t.HealthPath
}
