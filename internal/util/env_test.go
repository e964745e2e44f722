package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value      string
		defaultVal bool
		want       bool
	}{
		{value: "", defaultVal: true, want: true},
		{value: "", defaultVal: false, want: false},
		{value: "true", defaultVal: false, want: true},
		{value: "1", defaultVal: false, want: true},
		{value: "YES", defaultVal: false, want: true},
		{value: " on ", defaultVal: false, want: true},
		{value: "false", defaultVal: true, want: false},
		{value: "0", defaultVal: true, want: false},
		{value: "off", defaultVal: true, want: false},
		{value: "garbage", defaultVal: true, want: true},
		{value: "garbage", defaultVal: false, want: false},
	}
	for _, tc := range tests {
		t.Setenv("LIFELOG_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("LIFELOG_TEST_BOOL", tc.defaultVal); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.defaultVal, got, tc.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("LIFELOG_TEST_VAL", "")
	if got := EnvOrDefault("LIFELOG_TEST_VAL", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("LIFELOG_TEST_VAL", "set")
	if got := EnvOrDefault("LIFELOG_TEST_VAL", "fallback"); got != "set" {
		t.Errorf("expected set, got %q", got)
	}
}
