package utils

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types/registry"
	"github.com/google/go-cmp/cmp"
)

func writeDockerConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	basic := func(user, pass string) string {
		return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	}
	writeFile(t, filepath.Join(dir, "config.json"), `{
  "auths": {
    "https://index.docker.io/v1/": {"auth": "`+basic("hubuser", "hubpass")+`"},
    "registry.example.com:5000": {"auth": "`+basic("private", "s3cret")+`"}
  }
}`)
	return dir
}

func TestGetAuthConfig(t *testing.T) {
	dir := writeDockerConfig(t)

	testcases := []struct {
		domain string
		want   registry.AuthConfig
	}{
		{
			domain: "docker.io",
			want:   registry.AuthConfig{Username: "hubuser", Password: "hubpass", ServerAddress: DockerHubServer},
		},
		{
			domain: "registry.example.com:5000",
			want:   registry.AuthConfig{Username: "private", Password: "s3cret", ServerAddress: "registry.example.com:5000"},
		},
		{
			domain: "ghcr.io",
			want:   registry.AuthConfig{ServerAddress: "ghcr.io"},
		},
	}

	for _, tc := range testcases {
		got, err := GetAuthConfig(dir, tc.domain)
		if err != nil {
			t.Fatalf("%s: %v", tc.domain, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: auth config differs: (-want +got)\n%s", tc.domain, diff)
		}
		if HasCredentials(got) != (tc.want.Username != "") {
			t.Errorf("%s: unexpected HasCredentials result for %+v", tc.domain, got)
		}
	}
}

func TestGetAuthConfigNoConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	// Keep a credential helper on the host from being detected.
	t.Setenv("PATH", "")

	got, err := GetAuthConfig(t.TempDir(), "docker.io")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(registry.AuthConfig{ServerAddress: DockerHubServer}, got); diff != "" {
		t.Errorf("auth config differs: (-want +got)\n%s", diff)
	}
	if HasCredentials(got) {
		t.Fatalf("expected no credentials, got %+v", got)
	}
}

func TestGetAuthConfigBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json"), "{not json")

	if _, err := GetAuthConfig(dir, "docker.io"); err == nil {
		t.Fatal("expected an error for a corrupt docker config")
	}
}
