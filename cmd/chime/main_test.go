package main

import "testing"

func TestBuildRootCmd(t *testing.T) {
	root := buildRootCmd()

	if root.Use != "chime" {
		t.Errorf("Use = %q, want chime", root.Use)
	}

	var hasServe bool
	for _, cmd := range root.Commands() {
		if cmd.Use == "serve" {
			hasServe = true
			if cmd.Flag("config") == nil {
				t.Error("serve command missing --config flag")
			}
			if cmd.Flag("dev") == nil {
				t.Error("serve command missing --dev flag")
			}
		}
	}
	if !hasServe {
		t.Error("serve command not registered")
	}
}
