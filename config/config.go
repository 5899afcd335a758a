package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"paycontrol/templates"
	"paycontrol/utils"
)

// Default configuration values
const (
	DefaultPort                 = "3000"
	DefaultDataDir              = "./data"
	DefaultMerchantMode         = "sandbox"
	DefaultCurrency             = "usd"
	DefaultInitDelayMs          = 250
	DefaultWidgetTimeoutSeconds = 30
	FileName                    = "config.json"
)

// Environment variables that override the configuration file.
var envBindings = map[string]string{
	"tokenizationKey":          "TOKENIZATION_KEY",
	"checkoutURL":              "CHECKOUT_URL",
	"hostToken":                "HOST_TOKEN",
	"merchant.stripeSecretKey": "STRIPE_SECRET_KEY",
}

// ErrDeclined is returned when the operator refuses to create a configuration.
var ErrDeclined = errors.New("configuration file required to run the application")

// Config holds the application configuration
var Config templates.AppConfig

// Load loads the configuration from dataDir, prompting on stdin to create it
// when missing, and stores it in Config.
func Load(dataDir string) error {
	cfg, err := LoadFrom(dataDir, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadFrom reads <dataDir>/config.json, applies defaults and environment
// overrides and validates the result. A missing file is created from answers
// read from in.
func LoadFrom(dataDir string, in io.Reader, out io.Writer) (templates.AppConfig, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return templates.AppConfig{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	configPath := filepath.Join(dataDir, FileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := create(configPath, dataDir, in, out); err != nil {
			return templates.AppConfig{}, err
		}
	} else if err != nil {
		return templates.AppConfig{}, fmt.Errorf("error checking configuration file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	setDefaults(v, dataDir)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return templates.AppConfig{}, fmt.Errorf("bind %s: %w", env, err)
		}
		if os.Getenv(env) != "" {
			utils.Info("config", "Using environment variable (overrides config file)", "variable", env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return templates.AppConfig{}, fmt.Errorf("error reading configuration file: %w", err)
	}

	var cfg templates.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return templates.AppConfig{}, fmt.Errorf("error parsing configuration file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return templates.AppConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("dataDir", dataDir)
	v.SetDefault("initDelayMs", DefaultInitDelayMs)
	v.SetDefault("widgetTimeoutSeconds", DefaultWidgetTimeoutSeconds)
	v.SetDefault("merchant.mode", DefaultMerchantMode)
	v.SetDefault("merchant.currency", DefaultCurrency)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func Validate(cfg templates.AppConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// create asks whether to create the configuration, prompts for its values
// and writes it to path.
func create(path, dataDir string, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Configuration file not found. Would you like to create one? (y/n): ")
	response, err := readLine(reader)
	if err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	response = strings.ToLower(response)
	if response != "y" && response != "yes" {
		return ErrDeclined
	}

	cfg, err := promptForConfig(reader, out, dataDir)
	if err != nil {
		return fmt.Errorf("error creating configuration: %w", err)
	}
	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}

	fmt.Fprintln(out, "Configuration file created successfully.")
	return nil
}

// promptForConfig prompts the user for configuration values
func promptForConfig(reader *bufio.Reader, out io.Writer, dataDir string) (templates.AppConfig, error) {
	cfg := templates.AppConfig{
		Port:                 DefaultPort,
		DataDir:              dataDir,
		InitDelayMs:          DefaultInitDelayMs,
		WidgetTimeoutSeconds: DefaultWidgetTimeoutSeconds,
		Merchant: templates.MerchantConfig{
			Mode:     DefaultMerchantMode,
			Currency: DefaultCurrency,
		},
	}

	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		return readLine(reader)
	}

	var err error
	if cfg.TokenizationKey, err = ask("Enter drop-in Tokenization Key: "); err != nil {
		return cfg, err
	}

	amount, err := ask("Enter Payment Amount (e.g. 10.00): ")
	if err != nil {
		return cfg, err
	}
	if amount != "" {
		if cfg.PaymentAmount, err = strconv.ParseFloat(amount, 64); err != nil {
			return cfg, fmt.Errorf("invalid payment amount %q: %w", amount, err)
		}
	}

	if cfg.CheckoutURL, err = ask("Enter Checkout URL (blank for the built-in endpoint): "); err != nil {
		return cfg, err
	}

	paypal, err := ask("Enable PayPal? (y/n): ")
	if err != nil {
		return cfg, err
	}
	cfg.PayPalEnabled = strings.HasPrefix(strings.ToLower(paypal), "y")

	if cfg.HostToken, err = ask("Enter Host Token (blank to disable host authentication): "); err != nil {
		return cfg, err
	}

	mode, err := ask("Merchant mode, sandbox or stripe [sandbox]: ")
	if err != nil {
		return cfg, err
	}
	if mode != "" {
		cfg.Merchant.Mode = strings.ToLower(mode)
	}
	if cfg.Merchant.Mode == "stripe" {
		if cfg.Merchant.StripeSecretKey, err = ask("Enter Stripe Secret Key: "); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// readLine reads one trimmed line. A final line without newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Save saves the configuration to path
func Save(path string, cfg templates.AppConfig) error {
	jsonData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling configuration: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0600); err != nil {
		return fmt.Errorf("error writing configuration file: %w", err)
	}

	return nil
}

// Masked returns cfg with secrets replaced, for display.
func Masked(cfg templates.AppConfig) templates.AppConfig {
	cfg.HostToken = mask(cfg.HostToken)
	cfg.Merchant.StripeSecretKey = mask(cfg.Merchant.StripeSecretKey)
	return cfg
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
