package utils

import (
	"fmt"

	"github.com/docker/cli/cli/config"
	"github.com/docker/docker/api/types/registry"
)

// DockerHubServer is the key docker login stores Docker Hub credentials under.
const DockerHubServer = "https://index.docker.io/v1/"

// GetAuthConfig returns the registry AuthConfig stored by the docker CLI for
// the registry host domain. configDir defaults to $DOCKER_CONFIG or
// ~/.docker. A config without credentials for domain yields an AuthConfig
// carrying only the server address.
func GetAuthConfig(configDir, domain string) (registry.AuthConfig, error) {
	if configDir == "" {
		configDir = config.Dir()
	}

	server := domain
	if domain == "docker.io" || domain == "index.docker.io" {
		server = DockerHubServer
	}

	dcfg, err := config.Load(configDir)
	if err != nil {
		return registry.AuthConfig{}, fmt.Errorf("loading docker config file failed: %w", err)
	}

	// return early if there are no auths saved
	if !dcfg.ContainsAuth() {
		return registry.AuthConfig{ServerAddress: server}, nil
	}

	creds, err := dcfg.GetAuthConfig(server)
	if err != nil {
		return registry.AuthConfig{}, fmt.Errorf("getting credentials for %s failed: %w", server, err)
	}
	if creds.ServerAddress == "" {
		creds.ServerAddress = server
	}

	return registry.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		Auth:          creds.Auth,
		ServerAddress: creds.ServerAddress,
		IdentityToken: creds.IdentityToken,
		RegistryToken: creds.RegistryToken,
	}, nil
}

// HasCredentials reports whether auth carries anything worth sending.
func HasCredentials(auth registry.AuthConfig) bool {
	return auth.Username != "" || auth.Password != "" || auth.Auth != "" ||
		auth.IdentityToken != "" || auth.RegistryToken != ""
}
