// Package main is a smoke-test utility that verifies the backend's HTTP API is
// reachable and returning valid responses. It probes the health, readiness,
// and version endpoints, then confirms the auth surface rejects bad
// credentials with a 401 instead of an error page. Useful for quick
// post-deployment checks without needing external tooling like curl or a full
// integration test suite. Exits non-zero on the first failed check.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	baseURL := os.Getenv("ORB_SERVER_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := &http.Client{Timeout: 10 * time.Second}
	failed := false

	for _, path := range []string{"/health", "/ready", "/version"} {
		if !check(client, http.MethodGet, baseURL+path, "", http.StatusOK) {
			failed = true
		}
	}

	// Bad credentials should be a clean 401, not a 5xx
	if !check(client, http.MethodPost, baseURL+"/api/v1/auth/token",
		`{"username":"smoke-test","password":"definitely-wrong"}`, http.StatusUnauthorized) {
		failed = true
	}

	// No token should be a 401 on the protected surface
	if !check(client, http.MethodGet, baseURL+"/api/v1/users/self", "", http.StatusUnauthorized) {
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("All checks passed")
}

func check(client *http.Client, method, url, body string, wantStatus int) bool {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		fmt.Printf("FAIL %s %s: %v\n", method, url, err)
		return false
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("FAIL %s %s: %v\n", method, url, err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != wantStatus {
		fmt.Printf("FAIL %s %s: status %d, want %d\n%s\n", method, url, resp.StatusCode, wantStatus, respBody)
		return false
	}

	fmt.Printf("OK   %s %s: %d\n", method, url, resp.StatusCode)
	return true
}
