// Package config loads the cluster's environment-variable surface once at
// start-up (spec §6): SERVER_PORT, SERVER_ROLE, MASTER_SOCKET, SLAVE_CODE,
// REDIS_URI.
package config

import (
	"fmt"
	"os"
)

type Role string

const (
	RoleMaster Role = "MASTER"
	RoleSlave  Role = "SLAVE"
)

// Config is the fully-resolved, validated start-up configuration for
// either role.
type Config struct {
	Port         string
	Role         Role
	MasterSocket string
	SlaveCode    string
	RedisURI     string
}

// Load reads and validates the environment per role. It applies the
// documented defaults (port 7878, role SLAVE) and fails fast on any
// missing required variable, matching the "non-zero exit only on
// unrecoverable startup failure" contract in spec §6.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         envOr("SERVER_PORT", "7878"),
		Role:         resolveRole(envOr("SERVER_ROLE", string(RoleSlave))),
		MasterSocket: os.Getenv("MASTER_SOCKET"),
		SlaveCode:    os.Getenv("SLAVE_CODE"),
		RedisURI:     os.Getenv("REDIS_URI"),
	}

	if cfg.SlaveCode == "" {
		return nil, fmt.Errorf("SLAVE_CODE is required")
	}
	if cfg.RedisURI == "" {
		return nil, fmt.Errorf("REDIS_URI is required")
	}
	if cfg.Role == RoleSlave && cfg.MasterSocket == "" {
		return nil, fmt.Errorf("MASTER_SOCKET is required for slave role")
	}

	return cfg, nil
}

func resolveRole(v string) Role {
	if Role(v) == RoleMaster {
		return RoleMaster
	}
	return RoleSlave
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
