package hermes

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type configService struct {
	v *viper.Viper // Viper instance for configuration management
}

// newConfig creates a new instance of Config.
func newConfig() *configService {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading Config file: %v\n", err)
	}

	return &configService{v: v}
}

// Env retrieves a configuration value from environment variables.
func (c *configService) Env(envName string, defaultValue ...interface{}) interface{} {
	value := c.v.Get(envName)
	if value != nil {
		return value
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return nil
}

func (c *configService) EnvString(envName string, defaultValue ...string) string {
	value := c.v.Get(envName)
	if value != nil && fmt.Sprint(value) != "" {
		return fmt.Sprint(value)
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// Add adds a configuration to the application.
func (c *configService) Add(name string, configuration interface{}) {
	c.v.Set(name, configuration)
}

// GetString retrieves a string type configuration value from the application.
func (c *configService) GetString(path string) string {
	return c.v.GetString(path)
}

// GetInt retrieves an integer, falling back to defaultValue when unset or zero.
func (c *configService) GetInt(path string, defaultValue ...int) int {
	if n := c.v.GetInt(path); n != 0 || len(defaultValue) == 0 {
		return n
	}
	return defaultValue[0]
}

// GetBool retrieves a boolean type configuration value from the application.
func (c *configService) GetBool(path string) bool {
	return c.v.GetBool(path)
}

// GetSeconds reads an integer number of seconds as a duration.
func (c *configService) GetSeconds(path string, defaultValue time.Duration) time.Duration {
	if n := c.v.GetInt(path); n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// GetStringSlice splits a comma separated value, dropping blanks.
func (c *configService) GetStringSlice(path string, defaultValue ...string) []string {
	raw := c.v.GetString(path)
	if raw == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *configService) IsSet(path string) bool {
	return c.v.GetString(path) != ""
}
