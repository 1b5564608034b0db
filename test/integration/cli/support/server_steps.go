package support

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/server"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) startServer(cfg server.Config) error {
	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	testCtx.HTTPTestServer = httptest.NewServer(mux)
	return nil
}

func defaultServerConfig() server.Config {
	return server.Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 10}
}

func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(defaultServerConfig())
}

func (testCtx *TestContext) theScanServerIsRunningWithRateLimit(burst int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.01, Burst: burst}
	return testCtx.startServer(cfg)
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.HTTPTestServer.URL+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadWithReaders(name, path, readers string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if readers != "" {
		if err := mw.WriteField("readers", readers); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, testCtx.HTTPTestServer.URL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUpload(name, path string) error {
	return testCtx.iUploadWithReaders(name, path, "")
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status = %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("response header %s is not set", name)
	}
	return nil
}

// RegisterServerSteps registers HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a rate limit burst of (\d+)$`, testCtx.theScanServerIsRunningWithRateLimit)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" with readers "([^"]*)"$`, testCtx.iUploadWithReaders)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
}
