package commands

import (
	"context"
	"errors"
	"fmt"

	"h5p-downloader/lib/configutil"
	"h5p-downloader/lib/scrapers/h5p/core"
	"h5p-downloader/lib/serviceutil"
)

type Config struct {
	BaseUrl     string `json:"base_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	CsvFile     string `json:"csv_file"`
	OutputDir   string `json:"output_dir"`
	SessionFile string `json:"session_file"`
	ReportDb    string `json:"report_db"`
}

var placeholderValues = map[string]bool{
	"your_email@example.com": true,
	"your_email_here":        true,
	"your_password_here":     true,
}

func readConfig(path string) Config {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		serviceutil.Fatal("failed to read config, copy config.example.json5 to config.json5 and fill in your credentials", err)
	}

	if cfg.Username == "" || cfg.Password == "" {
		serviceutil.Fatal("invalid config", fmt.Errorf("'username' and 'password' must be set"))
	}
	if placeholderValues[cfg.Username] || placeholderValues[cfg.Password] {
		serviceutil.Fatal("invalid config", fmt.Errorf("replace the placeholder credentials with your actual ones"))
	}

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = "https://h5p.com"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "downloads"
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = "session_cookies.json"
	}
	if cfg.ReportDb == "" {
		cfg.ReportDb = "h5p_report.db"
	}
	return cfg
}

// createClient builds the platform client and makes sure it holds a live
// session, reusing a persisted one when possible.
func createClient(ctx context.Context, cfg Config) *core.Client {
	client, err := core.NewClient(ctx, core.ClientOptions{
		BaseUrl:     cfg.BaseUrl,
		SessionFile: cfg.SessionFile,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize platform client", err)
	}

	err = client.EnsureAuthenticated(ctx, cfg.Username, cfg.Password)
	if errors.Is(err, core.ErrSSONotSupported) {
		serviceutil.Fatal("cannot login: this account uses SSO/SAML, log in manually in a browser instead", err)
	}
	if err != nil {
		serviceutil.Fatal("authentication failed, double-check the credentials in config.json5 and try logging in manually at the platform URL", err)
	}
	return client
}
