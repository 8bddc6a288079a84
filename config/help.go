package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
guide-match-system

Usage:
  guidematch [flags]

Flags:
  -config-path string   Path to the config yaml file (default "config.yaml")
  -help                 Show this message

Configuration comes from the yaml file and may be overridden with
environment variables (DATABASE_HOST, RABBITMQ_HOST, AUTH_JWT_SECRET, ...).
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig dumps the effective configuration without secrets.
func PrintConfig(cfg *Config) {
	fmt.Printf("server:   port=%s replica=%q\n", cfg.Server.Port, cfg.Server.Replica)
	fmt.Printf("database: %s:%s/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Printf("rabbitmq: %s:%s\n", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Printf("auth:     access_ttl=%s refresh_ttl=%s\n", cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	fmt.Printf("logging:  level=%s\n", cfg.Logging.Level)
}
