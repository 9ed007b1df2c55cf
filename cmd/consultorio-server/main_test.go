package main

import (
	"strings"
	"testing"

	"github.com/consultorio/consultorio/internal/config"
)

func TestMigrateTarget_DefaultsFromConfig(t *testing.T) {
	cfg := &config.Config{DBSchema: "clinic", MigrationsDir: "/srv/migrations"}

	cmd := migrateCmd().Commands()[0]
	schema, dir := migrateTarget(cmd, cfg)
	if schema != "clinic" || dir != "/srv/migrations" {
		t.Errorf("expected config defaults, got %q %q", schema, dir)
	}

	if err := cmd.Flags().Set("schema", "other"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("dir", "./m"); err != nil {
		t.Fatal(err)
	}
	schema, dir = migrateTarget(cmd, cfg)
	if schema != "other" || dir != "./m" {
		t.Errorf("expected flag values, got %q %q", schema, dir)
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range migrateCmd().Commands() {
		names[c.Name()] = true
	}
	if !names["up"] || !names["status"] {
		t.Errorf("expected up and status subcommands, got %v", names)
	}
}

func TestTokenSet_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown type", []string{"set", "--type", "doctor", "--token", "x"}, "--type must be one of"},
		{"missing token", []string{"set", "--type", "admin"}, "--token is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tokenCmd()
			cmd.SetArgs(tt.args)
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}
