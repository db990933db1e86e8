package e2etesting

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tech-arch1tect/authority/app"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/mail"
	"github.com/tech-arch1tect/authority/testutils"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// E2EApp is a fully wired authority listening on a random local port, with
// outgoing mail captured instead of sent.
type E2EApp struct {
	App             *app.App
	BaseURL         string
	Config          *config.Config
	DB              *gorm.DB
	Mailer          *testutils.RecordingMailer
	CoverageTracker *CoverageTracker

	readinessTimeout time.Duration
}

type TestConfig struct {
	OverrideConfig   func(*config.Config) *config.Config
	EnableCoverage   bool
	ExcludePatterns  []string
	ReadinessTimeout time.Duration
}

func createTestConfig(testConfig *TestConfig) *config.Config {
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Log.Level = "error"

	if testConfig.OverrideConfig != nil {
		cfg = testConfig.OverrideConfig(cfg)
	}

	return cfg
}

func BuildTestApp(builder *app.AppBuilder, testConfig *TestConfig) (*E2EApp, error) {
	if testConfig == nil {
		testConfig = &TestConfig{}
	}

	cfg := createTestConfig(testConfig)
	mailer := &testutils.RecordingMailer{}

	builtApp, err := builder.
		WithConfig(cfg).
		WithFxOptions(fx.Decorate(func(mail.Mailer) mail.Mailer { return mailer })).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build test app: %w", err)
	}

	readinessTimeout := testConfig.ReadinessTimeout
	if readinessTimeout == 0 {
		readinessTimeout = 5 * time.Second
	}

	e2eApp := &E2EApp{
		App:              builtApp,
		Config:           cfg,
		DB:               builtApp.DB(),
		Mailer:           mailer,
		readinessTimeout: readinessTimeout,
	}

	if testConfig.EnableCoverage {
		e2eApp.CoverageTracker = NewCoverageTracker()
		for _, pattern := range testConfig.ExcludePatterns {
			e2eApp.CoverageTracker.AddExcludePattern(pattern)
		}

		e := builtApp.Echo()
		e2eApp.CoverageTracker.RegisterRoutes(e)
		e.Use(e2eApp.CoverageTracker.TrackingMiddleware())
	}

	return e2eApp, nil
}

func (e *E2EApp) Start(ctx context.Context) error {
	if err := e.App.Start(); err != nil {
		return fmt.Errorf("failed to start test app: %w", err)
	}

	addr, err := e.waitForListener(ctx)
	if err != nil {
		return fmt.Errorf("server failed to become ready: %w", err)
	}

	e.BaseURL = "http://" + addr.String()
	return nil
}

func (e *E2EApp) waitForListener(ctx context.Context) (net.Addr, error) {
	echoServer := e.App.Echo()
	if echoServer == nil {
		return nil, fmt.Errorf("echo server not initialized")
	}

	deadline := time.After(e.readinessTimeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if addr := echoServer.ListenerAddr(); addr != nil {
			conn, err := net.DialTimeout("tcp", addr.String(), 100*time.Millisecond)
			if err == nil {
				conn.Close()
				return addr, nil
			}
		}

		select {
		case <-ticker.C:
		case <-deadline:
			return nil, fmt.Errorf("timeout after %s waiting for HTTP listener", e.readinessTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *E2EApp) Stop() {
	e.App.StopTest()
}

// Path joins p onto the configured API prefix.
func (e *E2EApp) Path(p string) string {
	return e.Config.Server.APIPrefix + p
}

func (e *E2EApp) Client() *HTTPClient {
	return NewHTTPClient(e.BaseURL)
}
