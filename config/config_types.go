package config

import (
	"sync"

	"github.com/thrasher-corp/omniexchange/log"
)

// Constants declared here are filename strings and config defaults
const (
	File          = "config.json"
	EncryptedFile = "config.dat"
	// EnvPrefix prefixes every environment override, OMNIEXCHANGE_XE_APIKEY
	// for example
	EnvPrefix = "OMNIEXCHANGE"

	fileEncryptionPrompt   = 0
	fileEncryptionEnabled  = 1
	fileEncryptionDisabled = -1
	maxAuthFailures        = 3

	defaultReadTimeoutSeconds    = 5
	defaultConnectTimeoutSeconds = 2
)

// Constants here define unset default values displayed in the config.json
// file
const (
	DefaultUnsetAPIKey = "Key"
	DefaultUnsetAPIID  = "ID"
)

// Constants here hold some messages
const (
	ErrFailureOpeningConfig = "fatal error opening %s file"
	ErrCheckingConfigValues = "fatal error checking config values"
)

var m sync.Mutex

// Config is the overarching object that holds all the information for the
// forex providers and the failover order
type Config struct {
	Name              string                `json:"name" mapstructure:"name"`
	EncryptConfig     int                   `json:"encryptConfig" mapstructure:"encryptConfig"`
	Logging           log.Config            `json:"logging" mapstructure:"logging"`
	ProviderOrder     []string              `json:"providerOrder" mapstructure:"providerOrder"`
	CurrencyOverrides map[string]int64      `json:"currencyOverrides,omitempty" mapstructure:"currencyOverrides"`
	ForexProviders    []ForexProviderConfig `json:"forexProviders" mapstructure:"forexProviders"`

	// encryption session values
	storedSalt []byte
	sessionDK  []byte
}

// ForexProviderConfig holds the settings for a single forex provider
type ForexProviderConfig struct {
	Name                  string `json:"name" mapstructure:"name"`
	Enabled               bool   `json:"enabled" mapstructure:"enabled"`
	Verbose               bool   `json:"verbose" mapstructure:"verbose"`
	APIID                 string `json:"apiId" mapstructure:"apiId"`
	APIKey                string `json:"apiKey" mapstructure:"apiKey"`
	APIKeyLevel           int    `json:"apiKeyLevel" mapstructure:"apiKeyLevel"`
	ReadTimeoutSeconds    int    `json:"readTimeoutSeconds" mapstructure:"readTimeoutSeconds"`
	ConnectTimeoutSeconds int    `json:"connectTimeoutSeconds" mapstructure:"connectTimeoutSeconds"`
}

// KeyProvider returns the password used to encrypt or decrypt the config
type KeyProvider func() ([]byte, error)
