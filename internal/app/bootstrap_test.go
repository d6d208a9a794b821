package app

import "testing"

func TestListenAddr(t *testing.T) {
	cases := map[string]string{"8080": ":8080", " :9000 ": ":9000"}
	for in, want := range cases {
		got, err := ListenAddr(in)
		if err != nil || got != want {
			t.Fatalf("ListenAddr(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ListenAddr(" "); err == nil {
		t.Fatalf("expected error for empty port")
	}
}

func TestMetricsNamespace(t *testing.T) {
	cases := map[string]string{
		"Skill Registry": "skill_registry",
		"skills-api":     "skills_api",
		"":               "skill_registry",
		"9lives":         "skill_registry",
		"--api--":        "api",
	}
	for in, want := range cases {
		if got := metricsNamespace(in); got != want {
			t.Fatalf("metricsNamespace(%q) = %q, want %q", in, got, want)
		}
	}
}
