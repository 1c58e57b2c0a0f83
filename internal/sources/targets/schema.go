package targets

import "github.com/MrSnakeDoc/shipcheck/internal/domain"

// File is the top-level structure of targets.yaml.
//
//	defaults:
//	  health_path: /api/health
//	targets:
//	  - name: api
//	    instance_id: ${API_INSTANCE_ID}
//	    port: 8000
//	    external_host: ${API_PUBLIC_IP}
type File struct {
	Defaults Defaults        `yaml:"defaults"`
	Targets  []domain.Target `yaml:"targets"`
}

// Defaults apply to every target that leaves the field empty.
type Defaults struct {
	HealthPath string `yaml:"health_path"`
	Port       int    `yaml:"port"`
	InstanceID string `yaml:"instance_id"`
}
