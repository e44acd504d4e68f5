package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestCheckCommand_ValidIdentifier(t *testing.T) {
	resetViper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"check", "RO14592450"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "valid") {
		t.Errorf("expected valid verdict, got: %s", output)
	}
	if !strings.Contains(output, "14592450") {
		t.Errorf("expected canonical form, got: %s", output)
	}
}

func TestCheckCommand_StripsFormattingNoise(t *testing.T) {
	resetViper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"check", "ro 14.592.450"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "14592450") {
		t.Errorf("expected canonical form, got: %s", output)
	}
}

func TestCheckCommand_BadChecksum(t *testing.T) {
	resetViper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"check", "14592451"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "not a valid tax identifier") {
		t.Errorf("expected invalid verdict, got: %s", output)
	}
}

func TestCheckCommand_NotNumeric(t *testing.T) {
	resetViper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"check", "not-a-number"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "not a valid tax identifier") {
		t.Errorf("expected invalid verdict, got: %s", output)
	}
}
