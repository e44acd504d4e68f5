package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketcap/pkg/api"

	"github.com/spf13/viper"
)

func TestSourcesCommand_ListsAdapters(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sources") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("job") != "ingest" {
			t.Errorf("expected job=ingest query, got: %s", r.URL.RawQuery)
		}

		resp := api.SourcesResponse{
			Sources: []api.SourceInfo{
				{Name: "seap", Confidence: 70, Enabled: true, Cursor: "42"},
				{Name: "eufunds", Confidence: 60, Enabled: false},
			},
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sources"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "seap") {
		t.Errorf("expected seap row, got: %s", output)
	}
	if !strings.Contains(output, "eufunds") {
		t.Errorf("expected eufunds row, got: %s", output)
	}
	if !strings.Contains(output, "no") {
		t.Errorf("expected disabled marker for eufunds, got: %s", output)
	}
	if !strings.Contains(output, "42") {
		t.Errorf("expected cursor in output, got: %s", output)
	}
}

func TestSourcesCommand_Empty(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.SourcesResponse{})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sources"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "No sources registered") {
		t.Errorf("expected empty message, got: %s", output)
	}
}
