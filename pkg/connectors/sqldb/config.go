package sqldb

import (
	"fmt"
)

// Config contains relational connection options shared by the PostgreSQL and
// SQL Server variants.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string

	// PostgreSQL: "disable", "require", ... SQL Server ignores this.
	SSLMode string

	// SQL Server connection options.
	Encrypt                bool
	TrustServerCertificate bool

	// ConnectTimeout in seconds.
	ConnectTimeout int
}

// FromMap creates a Config from a connection's decrypted config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Encrypt:        true,
		ConnectTimeout: 30,
	}

	host, ok := config["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	if port, ok := config["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if db, ok := config["database"].(string); ok {
		cfg.Database = db
	} else if name, ok := config["name"].(string); ok {
		// Support legacy "name" field
		cfg.Database = name
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if user, ok := config["username"].(string); ok {
		cfg.Username = user
	} else if user, ok := config["user"].(string); ok {
		cfg.Username = user
	}

	if pass, ok := config["password"].(string); ok {
		cfg.Password = pass
	}

	if ssl, ok := config["ssl_mode"].(string); ok {
		cfg.SSLMode = ssl
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	if timeout, ok := config["connect_timeout"].(float64); ok {
		cfg.ConnectTimeout = int(timeout)
	} else if timeout, ok := config["connect_timeout"].(int); ok {
		cfg.ConnectTimeout = timeout
	}

	return cfg, nil
}
