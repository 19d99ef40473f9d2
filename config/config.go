package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/currency"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/log"
)

var (
	// ErrForexProviderNotFound is returned when a provider is missing from
	// the config
	ErrForexProviderNotFound = errors.New("forex provider not found in config")

	errDecryptFailed         = errors.New("failed to decrypt config")
	errKeyProviderUnset      = errors.New("config is encrypted but no key provider was supplied")
	errUnsupportedConfigType = errors.New("unsupported config type")
)

// GetForexProvider returns a forex provider configuration by its name
func (c *Config) GetForexProvider(name string) (ForexProviderConfig, error) {
	m.Lock()
	defer m.Unlock()
	for i := range c.ForexProviders {
		if strings.EqualFold(c.ForexProviders[i].Name, name) {
			return c.ForexProviders[i], nil
		}
	}
	return ForexProviderConfig{}, fmt.Errorf("%w: %s", ErrForexProviderNotFound, name)
}

// GetForexProviderSettings returns the provider settings used to build the
// forex service
func (c *Config) GetForexProviderSettings() []base.Settings {
	m.Lock()
	defer m.Unlock()
	settings := make([]base.Settings, len(c.ForexProviders))
	for i := range c.ForexProviders {
		settings[i] = c.ForexProviders[i].Settings()
	}
	return settings
}

// GetProviderOrder returns a copy of the failover order
func (c *Config) GetProviderOrder() []string {
	m.Lock()
	defer m.Unlock()
	order := make([]string, len(c.ProviderOrder))
	copy(order, c.ProviderOrder)
	return order
}

// CurrencyTable builds the currency metadata table with the configured
// overrides applied
func (c *Config) CurrencyTable() (*currency.Table, error) {
	m.Lock()
	defer m.Unlock()
	return currency.NewTable(c.CurrencyOverrides)
}

// Settings converts the provider config into provider settings
func (f *ForexProviderConfig) Settings() base.Settings {
	return base.Settings{
		Name:           strings.ToLower(f.Name),
		Enabled:        f.Enabled,
		Verbose:        f.Verbose,
		APIID:          f.APIID,
		APIKey:         f.APIKey,
		APIKeyLvl:      f.APIKeyLevel,
		ReadTimeout:    time.Duration(f.ReadTimeoutSeconds) * time.Second,
		ConnectTimeout: time.Duration(f.ConnectTimeoutSeconds) * time.Second,
	}
}

// credentialsSet checks the credentials a provider needs before it can be
// enabled
func credentialsSet(f *ForexProviderConfig) vala.Checker {
	return func() (bool, string) {
		if f.APIKey == "" || f.APIKey == DefaultUnsetAPIKey {
			return false, f.Name + " apiKey unset"
		}
		if strings.EqualFold(f.Name, forexprovider.XE) && (f.APIID == "" || f.APIID == DefaultUnsetAPIID) {
			return false, f.Name + " apiId unset"
		}
		return true, ""
	}
}

func supported(name string) vala.Checker {
	return func() (bool, string) {
		if !common.StringSliceContainsUpper(forexprovider.GetSupportedForexProviders(), name) {
			return false, name + " is not a supported forex provider"
		}
		return true, ""
	}
}

// CheckForexProviderConfig adds missing providers, defaults timeouts and
// disables enabled providers that cannot be used
func (c *Config) CheckForexProviderConfig() error {
	m.Lock()
	defer m.Unlock()

	for i := range c.ForexProviders {
		if err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(c.ForexProviders[i].Name, fmt.Sprintf("forexProviders[%d].name", i)),
		).Check(); err != nil {
			return err
		}
	}

	for _, name := range forexprovider.GetSupportedForexProviders() {
		if c.getForexProvider(name) != nil {
			continue
		}
		log.Warnf(log.ConfigMgr, "%s forex provider not found, adding to config..", name)
		fx := ForexProviderConfig{
			Name:   name,
			APIKey: DefaultUnsetAPIKey,
		}
		if name == forexprovider.XE {
			fx.APIID = DefaultUnsetAPIID
		}
		c.ForexProviders = append(c.ForexProviders, fx)
	}

	for i := range c.ForexProviders {
		fx := &c.ForexProviders[i]
		fx.Name = strings.ToLower(strings.TrimSpace(fx.Name))
		if fx.ReadTimeoutSeconds <= 0 {
			if fx.Enabled {
				log.Warnf(log.ConfigMgr, "%s read timeout not set, defaulting to %ds", fx.Name, defaultReadTimeoutSeconds)
			}
			fx.ReadTimeoutSeconds = defaultReadTimeoutSeconds
		}
		if fx.ConnectTimeoutSeconds <= 0 {
			if fx.Enabled {
				log.Warnf(log.ConfigMgr, "%s connect timeout not set, defaulting to %ds", fx.Name, defaultConnectTimeoutSeconds)
			}
			fx.ConnectTimeoutSeconds = defaultConnectTimeoutSeconds
		}
		if !fx.Enabled {
			continue
		}
		if err := vala.BeginValidation().Validate(
			supported(fx.Name),
			credentialsSet(fx),
		).Check(); err != nil {
			log.Warnf(log.ConfigMgr, "%s forex provider disabled: %s", fx.Name, err)
			fx.Enabled = false
		}
	}
	return nil
}

// CheckProviderOrder drops order entries that are not enabled providers and
// defaults the order to every enabled provider when nothing usable remains
func (c *Config) CheckProviderOrder() {
	m.Lock()
	defer m.Unlock()

	order := make([]string, 0, len(c.ProviderOrder))
	for _, name := range c.ProviderOrder {
		name = strings.ToLower(strings.TrimSpace(name))
		fx := c.getForexProvider(name)
		switch {
		case fx == nil:
			log.Warnf(log.ConfigMgr, "provider order entry %q is not configured, removing", name)
		case !fx.Enabled:
			log.Warnf(log.ConfigMgr, "provider order entry %q is disabled, removing", name)
		case common.StringSliceContainsUpper(order, name):
			log.Warnf(log.ConfigMgr, "provider order entry %q is duplicated, removing", name)
		default:
			order = append(order, name)
		}
	}

	if len(order) == 0 {
		for i := range c.ForexProviders {
			if c.ForexProviders[i].Enabled {
				order = append(order, c.ForexProviders[i].Name)
			}
		}
		if len(order) > 0 {
			log.Warnf(log.ConfigMgr, "provider order not set, defaulting to %s", strings.Join(order, ","))
		} else {
			log.Warnln(log.ConfigMgr, "no forex providers enabled. Please set provider credentials in your config file")
		}
	}
	c.ProviderOrder = order
}

// CheckLoggerConfig checks to see logger values are present and applies them
// to the global logger
func (c *Config) CheckLoggerConfig() error {
	m.Lock()
	defer m.Unlock()

	if c.Logging.Enabled == nil || c.Logging.Output == "" {
		c.Logging = log.GenDefaultSettings()
	}
	return log.SetupGlobalLogger(&c.Logging)
}

// CheckCurrencyOverrides validates every subunit override
func (c *Config) CheckCurrencyOverrides() error {
	m.Lock()
	defer m.Unlock()
	v := vala.BeginValidation()
	for code, factor := range c.CurrencyOverrides {
		v = v.Validate(
			vala.StringNotEmpty(strings.TrimSpace(code), "currencyOverrides code"),
			vala.GreaterThan(int(factor), 0, "currencyOverrides["+code+"]"),
		)
	}
	return v.Check()
}

// CheckConfig checks all config settings
func (c *Config) CheckConfig() error {
	if err := c.CheckLoggerConfig(); err != nil {
		log.Errorf(log.ConfigMgr, "Failed to configure logger, some logging features unavailable: %s", err)
	}
	if err := c.CheckCurrencyOverrides(); err != nil {
		return errors.Wrap(err, ErrCheckingConfigValues)
	}
	if err := c.CheckForexProviderConfig(); err != nil {
		return errors.Wrap(err, ErrCheckingConfigValues)
	}
	c.CheckProviderOrder()
	return nil
}

// LoadConfig loads your configuration file into your configuration object
func (c *Config) LoadConfig(configPath string, keyProvider KeyProvider) error {
	if err := c.ReadConfigFromFile(configPath, keyProvider); err != nil {
		return errors.Wrapf(err, ErrFailureOpeningConfig, configPath)
	}
	return c.CheckConfig()
}

// ReadConfigFromFile reads the configuration from the given file, decrypting
// it when required
func (c *Config) ReadConfigFromFile(configPath string, keyProvider KeyProvider) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	result, wasEncrypted, err := ReadConfig(f, configType(configPath), keyProvider)
	if err != nil {
		return errors.Wrap(err, "error reading config")
	}
	m.Lock()
	c.Name = result.Name
	c.EncryptConfig = result.EncryptConfig
	c.Logging = result.Logging
	c.ProviderOrder = result.ProviderOrder
	c.CurrencyOverrides = result.CurrencyOverrides
	c.ForexProviders = result.ForexProviders
	c.sessionDK, c.storedSalt = result.sessionDK, result.storedSalt
	m.Unlock()
	if wasEncrypted {
		log.Debugf(log.ConfigMgr, "decrypted config %s", configPath)
	}
	return nil
}

// ReadConfig checks for encryption and loads the config using viper, applying
// OMNIEXCHANGE_ prefixed environment overrides. configType is the viper
// config type of the plain text, json, yaml or toml. Returns the loaded
// configuration and whether it was encrypted.
func ReadConfig(configReader io.Reader, configType string, keyProvider KeyProvider) (*Config, bool, error) {
	data, err := io.ReadAll(configReader)
	if err != nil {
		return nil, false, err
	}

	var (
		wasEncrypted    bool
		sessionDK, salt []byte
	)
	if ConfirmECS(data) {
		if keyProvider == nil {
			return nil, false, errKeyProviderUnset
		}
		data, sessionDK, salt, err = decryptWithKeyProvider(data, keyProvider)
		if err != nil {
			return nil, true, err
		}
		wasEncrypted = true
		// encrypted payloads are always written as JSON
		configType = "json"
	}

	v, err := newViper(configType)
	if err != nil {
		return nil, wasEncrypted, err
	}
	if err = v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, wasEncrypted, err
	}

	c := &Config{}
	if err = v.Unmarshal(c); err != nil {
		return nil, wasEncrypted, err
	}
	applyCredentialOverrides(v, c)
	c.sessionDK, c.storedSalt = sessionDK, salt
	return c, wasEncrypted, nil
}

func newViper(configType string) (*viper.Viper, error) {
	switch configType {
	case "json", "yaml", "yml", "toml":
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedConfigType, configType)
	}
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"name", "providerOrder"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// applyCredentialOverrides sets provider credentials from the environment,
// OMNIEXCHANGE_XE_APIID and OMNIEXCHANGE_OPEN_EXCHANGE_RATES_APIKEY for
// example
func applyCredentialOverrides(v *viper.Viper, c *Config) {
	for i := range c.ForexProviders {
		name := strings.ToLower(c.ForexProviders[i].Name)
		if id := v.GetString(name + ".apiid"); id != "" {
			c.ForexProviders[i].APIID = id
		}
		if key := v.GetString(name + ".apikey"); key != "" {
			c.ForexProviders[i].APIKey = key
		}
	}
}

func decryptWithKeyProvider(data []byte, keyProvider KeyProvider) (plain, sessionDK, salt []byte, err error) {
	for range maxAuthFailures {
		var key []byte
		key, err = keyProvider()
		if err != nil {
			log.Errorf(log.ConfigMgr, "PromptForConfigKey err: %s", err)
			continue
		}
		plain, sessionDK, salt, err = decryptConfigData(data, key)
		if err != nil {
			log.Errorln(log.ConfigMgr, "Could not decrypt and deserialise data with given key. Invalid password?", err)
			continue
		}
		return plain, sessionDK, salt, nil
	}
	return nil, nil, nil, fmt.Errorf("%w after %d attempts: %w", errDecryptFailed, maxAuthFailures, err)
}

// SaveConfigToFile saves your configuration to your desired path as a JSON
// object, encrypting it when enabled
func (c *Config) SaveConfigToFile(configPath string, keyProvider KeyProvider) error {
	var f *os.File
	provider := func() (io.Writer, error) {
		var err error
		f, err = os.OpenFile(configPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		return f, err
	}
	err := c.Save(provider, keyProvider)
	if f != nil {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// Save saves your configuration to the writer as a JSON object with
// encryption, if configured. If there is an error when preparing the data to
// store, the writer is never requested.
func (c *Config) Save(writerProvider func() (io.Writer, error), keyProvider KeyProvider) error {
	m.Lock()
	payload, err := json.MarshalIndent(c, "", " ")
	encrypt := c.EncryptConfig == fileEncryptionEnabled
	m.Unlock()
	if err != nil {
		return err
	}

	if encrypt {
		if len(c.sessionDK) == 0 {
			if keyProvider == nil {
				return errKeyProviderUnset
			}
			key, err := keyProvider()
			if err != nil {
				return err
			}
			c.sessionDK, c.storedSalt, err = makeNewSessionDK(key)
			if err != nil {
				return err
			}
		}
		payload, err = c.encryptConfigData(payload)
		if err != nil {
			return err
		}
	}

	w, err := writerProvider()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(payload))
	return err
}

// DefaultConfig returns a config with every supported provider present and
// disabled, ready to be filled in
func DefaultConfig() *Config {
	c := &Config{
		Name:          "omniexchange",
		EncryptConfig: fileEncryptionPrompt,
		Logging:       log.GenDefaultSettings(),
	}
	for _, name := range forexprovider.GetSupportedForexProviders() {
		fx := ForexProviderConfig{
			Name:                  name,
			APIKey:                DefaultUnsetAPIKey,
			ReadTimeoutSeconds:    defaultReadTimeoutSeconds,
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
		}
		if name == forexprovider.XE {
			fx.APIID = DefaultUnsetAPIID
		}
		c.ForexProviders = append(c.ForexProviders, fx)
	}
	return c
}

// EnableEncryption marks the config to be encrypted on the next save
func (c *Config) EnableEncryption() {
	m.Lock()
	c.EncryptConfig = fileEncryptionEnabled
	m.Unlock()
}

// DisableEncryption marks the config to be saved as plain text and forgets
// the session key
func (c *Config) DisableEncryption() {
	m.Lock()
	c.EncryptConfig = fileEncryptionDisabled
	c.sessionDK, c.storedSalt = nil, nil
	m.Unlock()
}

func (c *Config) getForexProvider(name string) *ForexProviderConfig {
	for i := range c.ForexProviders {
		if strings.EqualFold(c.ForexProviders[i].Name, name) {
			return &c.ForexProviders[i]
		}
	}
	return nil
}

// configType returns the viper config type for a file path, json when the
// extension is unknown
func configType(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "yaml", "yml", "toml":
		return ext
	default:
		return "json"
	}
}
