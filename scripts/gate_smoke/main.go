// Command gate_smoke drives a full pass round trip against a running API
// instance. It is meant for post-deploy verification: it logs in, issues a
// visitor pass, walks it OUT and IN, and checks the register and dashboard
// reflect the trip.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type step struct {
	Name     string
	Status   int
	Duration time.Duration
	Err      error
}

type client struct {
	base   string
	prefix string
	token  string
	http   *http.Client
}

func main() {
	var (
		base     string
		prefix   string
		email    string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.StringVar(&email, "email", os.Getenv("SMOKE_EMAIL"), "Front office login email")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "Front office login password")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if email == "" || password == "" {
		log.Fatal("email and password are required (flags or SMOKE_EMAIL/SMOKE_PASSWORD)")
	}

	c := &client{
		base:   strings.TrimRight(base, "/"),
		prefix: prefix,
		http:   &http.Client{Timeout: timeout},
	}

	var steps []step

	steps = append(steps, c.check("health", http.MethodGet, "/health", nil, nil))
	steps = append(steps, c.check("ready", http.MethodGet, "/ready", nil, nil))

	var login struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	steps = append(steps, c.check("login", http.MethodPost, prefix+"/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, &login))
	c.token = login.Data.AccessToken

	var issued struct {
		Data struct {
			ID     string `json:"id"`
			PassNo string `json:"passNo"`
		} `json:"data"`
	}
	steps = append(steps, c.check("issue", http.MethodPost, prefix+"/gate-passes", map[string]interface{}{
		"type":        "VISITOR",
		"visitorName": "Smoke Visitor",
		"reason":      "post-deploy smoke check",
	}, &issued))

	if issued.Data.ID != "" {
		passPath := fmt.Sprintf("%s/gate-passes/%s", prefix, issued.Data.ID)
		steps = append(steps, c.check("mark out", http.MethodPost, passPath+"/out", nil, nil))
		steps = append(steps, c.check("mark in", http.MethodPost, passPath+"/in", nil, nil))
		steps = append(steps, c.check("detail", http.MethodGet, passPath, nil, nil))
	}

	steps = append(steps, c.check("register", http.MethodGet, prefix+"/gate-passes?status=IN&limit=5", nil, nil))
	steps = append(steps, c.check("dashboard", http.MethodGet, prefix+"/dashboard/gate", nil, nil))

	failed := printReport(steps, issued.Data.PassNo)
	if failed > 0 {
		os.Exit(1)
	}
}

func (c *client) check(name, method, path string, payload interface{}, out interface{}) step {
	s := step{Name: name}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			s.Err = err
			return s
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		s.Err = err
		return s
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	s.Duration = time.Since(start)
	if err != nil {
		s.Err = err
		return s
	}
	defer resp.Body.Close() //nolint:errcheck

	s.Status = resp.StatusCode
	if s.Status >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		s.Err = fmt.Errorf("unexpected status %d: %s", s.Status, strings.TrimSpace(string(raw)))
		return s
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.Err = fmt.Errorf("decode response: %w", err)
		}
	}
	return s
}

func printReport(steps []step, passNo string) int {
	fmt.Println("Gate Pass Smoke Report")
	fmt.Println("======================")
	failed := 0
	for _, s := range steps {
		status := "OK"
		if s.Err != nil {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %-10s %d (%s)\n", status, s.Name, s.Status, s.Duration)
		if s.Err != nil {
			fmt.Printf("  %v\n", s.Err)
		}
	}
	if passNo != "" {
		fmt.Printf("Issued pass: %s\n", passNo)
	}
	fmt.Printf("Failed steps: %d\n", failed)
	return failed
}
