//go:build property
// +build property

package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

// TestConfigurationProperties tests configuration loading and validation properties
func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid server settings always load", prop.ForAll(
		func(port int, host string, root string) bool {
			v := viper.New()
			v.Set("server.port", port)
			v.Set("server.host", host)
			v.Set("content.root", root)

			cfg, err := LoadFrom(v)
			return err == nil && cfg.Server.Port == port && cfg.Content.Root == root
		},
		gen.IntRange(0, 65535),
		gen.RegexMatch(`^[a-zA-Z0-9.-]{1,32}$`),
		gen.RegexMatch(`^[a-z][a-z0-9_/]{0,20}$`),
	))

	properties.Property("ports outside range are rejected", prop.ForAll(
		func(port int) bool {
			return validateServerConfig(&ServerConfig{Port: port}) != nil
		},
		gen.OneGenOf(gen.IntRange(-10000, -1), gen.IntRange(65536, 200000)),
	))

	properties.Property("parent directory segments never validate", prop.ForAll(
		func(prefix, suffix string) bool {
			return validatePath(prefix+"/../../"+suffix) != nil
		},
		gen.RegexMatch(`^[a-z]{1,5}$`),
		gen.RegexMatch(`^[a-z]{1,5}$`),
	))

	properties.TestingRun(t)
}
