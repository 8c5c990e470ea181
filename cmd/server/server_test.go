//go:build integration

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/arules/internal/config"
)

// setupTestDB creates a PostgreSQL testcontainer and opens it the way main does
func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		postgres.Terminate(ctx)
	})

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("Failed to resolve migrations path: %v", err)
	}

	cfg := config.Server{
		DatabaseURL:    fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MigrationsPath: migrationsPath,
	}

	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = openDatabase(cfg)
		if err == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestEndToEnd_RulesSurviveRestart tests the complete workflow:
// 1. Create rules over HTTP
// 2. Dispatch and read the board
// 3. Start a second server on the same database and dispatch again
func TestEndToEnd_RulesSurviveRestart(t *testing.T) {
	db := setupTestDB(t)

	server, err := NewServer(db)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	baseURL := ts.URL + "/api/v1"

	t.Log("Step 1: Creating rules...")
	adult := makeRequest(t, "POST", baseURL+"/rules", map[string]any{
		"name":   "adults",
		"schema": "person",
		"event":  "created",
		"conditions": []map[string]any{
			{"param": "age", "operator": "greaterOrEqual", "value": 18},
		},
		"action": map[string]any{"kind": "alert", "value": "welcome"},
	}, http.StatusCreated)
	makeRequest(t, "POST", baseURL+"/rules", map[string]any{
		"name":   "locals",
		"schema": "person",
		"event":  "created",
		"conditions": []map[string]any{
			{"param": "hometown", "operator": "satisfies", "value": `value == "Leeds" && age > 20.0`},
		},
		"action": map[string]any{"kind": "background", "value": "green"},
	}, http.StatusCreated)

	t.Log("Step 2: Dispatching...")
	makeRequest(t, "POST", baseURL+"/schemas/person/triggers/created/dispatch",
		map[string]any{"name": "Ann", "age": 30, "hometown": "Leeds"}, http.StatusAccepted)

	board := makeRequest(t, "GET", baseURL+"/board", nil, http.StatusOK)
	if board["background"] != "green" {
		t.Errorf("Expected green background, got %v", board["background"])
	}
	if alerts, _ := board["alerts"].([]any); len(alerts) != 1 {
		t.Errorf("Expected one alert, got %v", board["alerts"])
	}

	health := makeRequest(t, "GET", baseURL+"/health", nil, http.StatusOK)
	if health["storage"] != "postgres" || health["rulesLoaded"] != 2.0 {
		t.Errorf("Unexpected health: %v", health)
	}

	t.Log("Step 3: Restarting...")
	restarted, err := NewServer(db)
	if err != nil {
		t.Fatalf("Failed to create second server: %v", err)
	}
	ts2 := httptest.NewServer(restarted)
	defer ts2.Close()

	list := makeRequest(t, "GET", ts2.URL+"/api/v1/rules", nil, http.StatusOK)
	reloaded, _ := list["rules"].([]any)
	if len(reloaded) != 2 {
		t.Fatalf("Expected 2 reloaded rules, got %d", len(reloaded))
	}
	if first, _ := reloaded[0].(map[string]any); first["id"] != adult["id"] {
		t.Errorf("Expected creation order to survive restart, first rule is %v", first["id"])
	}

	makeRequest(t, "POST", ts2.URL+"/api/v1/schemas/person/triggers/created/dispatch",
		map[string]any{"name": "Bo", "age": 19, "hometown": "York"}, http.StatusAccepted)
	board = makeRequest(t, "GET", ts2.URL+"/api/v1/board", nil, http.StatusOK)
	logLines, _ := board["log"].([]any)
	if len(logLines) != 2 || logLines[0] != "SUCCESS:  adults (Bo, 19, York)" || logLines[1] != "FAIL:  locals (Bo, 19, York)" {
		t.Errorf("Unexpected log after restart: %v", logLines)
	}

	t.Log("Step 4: Deleting...")
	id, _ := adult["id"].(string)
	resp, err := makeHTTPRequest("DELETE", ts2.URL+"/api/v1/rules/"+id, nil)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM rule_definitions`).Scan(&count); err != nil {
		t.Fatalf("Failed to count definitions: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored definition, got %d", count)
	}
}

// Helper function to make JSON requests and check the status
func makeRequest(t *testing.T, method, url string, body any, wantStatus int) map[string]any {
	resp, err := makeHTTPRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to make %s request to %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return result
}

// Helper function to make raw HTTP requests
func makeHTTPRequest(method, url string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}
