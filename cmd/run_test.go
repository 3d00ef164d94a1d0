package main

import (
	"strings"
	"testing"
)

func TestPresetInputs(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{in: []string{"", ""}, want: ""},
		{in: []string{"a.in", ""}, want: "a.in"},
		{in: []string{"a.in", "b.out"}, want: "a.in,b.out"},
		{in: []string{"", "b.out"}, want: ""},
	}
	for _, tt := range tests {
		if got := strings.Join(presetInputs(tt.in...), ","); got != tt.want {
			t.Errorf("presetInputs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"open", "run", "last", "build", "input", "io", "test", "watch", "clean", "doctor", "languages", "config"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, name := range []string{"last", "clean", "io"} {
		cmd, _, _ := rootCmd.Find([]string{name})
		if cmd.Flags().Lookup("yes") == nil {
			t.Errorf("%s has no --yes flag", name)
		}
	}
}
