package commands

import (
	"os"
	"path/filepath"
	"thsr-booker/internal/components/telemetry"
	"thsr-booker/internal/notify"
	"thsr-booker/internal/scrapers/thsr"
	"thsr-booker/lib/configutil"
)

const (
	defaultConfigFile = "thsr.json5"
	envFile           = ".env"

	envPersonalId = "THSR_PERSONAL_ID"
	envBaseUrl    = "THSR_BASE_URL"
	envEmail      = "THSR_EMAIL"
)

type Config struct {
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRedirects   int    `json:"max_redirects"`
	CaptchaFile    string `json:"captcha_file"`
	PersonalId     string `json:"personal_id"`

	// NoCaptchaViewer stops the security code image from being opened in an image viewer, it is
	// only ever opened when stdout is a terminal.
	NoCaptchaViewer bool `json:"no_captcha_viewer"`

	// Email receives the booking summary when Smtp is configured.
	Email     string            `json:"email"`
	Smtp      notify.SmtpConfig `json:"smtp"`
	Telemetry telemetry.Config  `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:        thsr.DefaultBaseUrl,
		TimeoutSeconds: int(thsr.DefaultTimeout.Seconds()),
		MaxRedirects:   thsr.DefaultMaxRedirects,
		CaptchaFile:    filepath.Join(os.TempDir(), "thsr_captcha.jpg"),
		Smtp:           notify.SmtpConfig{Port: notify.DefaultSmtpPort},
	}
}

// loadConfig layers the config sources, later ones win:
// defaults, <path>, <path>.local, environment (a .env file included).
func loadConfig(path string) (Config, error) {
	err := configutil.LoadEnv(envFile)
	if err != nil {
		return Config{}, err
	}

	if path == "" {
		path = configutil.FindUpwards(defaultConfigFile)
	}
	config, err := configutil.ReadConfig(path, defaultConfig())
	if err != nil {
		return Config{}, err
	}

	configutil.OverrideFromEnv(&config.PersonalId, envPersonalId)
	configutil.OverrideFromEnv(&config.BaseUrl, envBaseUrl)
	configutil.OverrideFromEnv(&config.Email, envEmail)
	return config, nil
}
