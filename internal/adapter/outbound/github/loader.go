// Package github loads files referenced by github:// URLs through the gh CLI,
// so private-repo API descriptions and config files work without embedding
// tokens in configuration.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
)

// IsGitHubURL reports whether the source uses the github:// scheme.
func IsGitHubURL(source string) bool {
	return strings.HasPrefix(source, "github://")
}

// Loader fetches file contents via the gh CLI, which carries authentication.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// parseURL splits github://owner/repo/path/to/file[@ref] into its components.
func (l *Loader) parseURL(githubURL string) (owner, repo, path, ref string, err error) {
	if !IsGitHubURL(githubURL) {
		return "", "", "", "", fmt.Errorf("invalid GitHub URL format: %s", githubURL)
	}

	urlPath := strings.TrimPrefix(githubURL, "github://")
	if at := strings.LastIndex(urlPath, "@"); at != -1 {
		ref = urlPath[at+1:]
		urlPath = urlPath[:at]
	}

	parts := strings.SplitN(urlPath, "/", 3)
	if len(parts) < 3 {
		return "", "", "", "", fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	return parts[0], parts[1], parts[2], ref, nil
}

// LoadFile retrieves one file's contents through the GitHub contents API.
func (l *Loader) LoadFile(ctx context.Context, githubURL string) ([]byte, error) {
	owner, repo, path, ref, err := l.parseURL(githubURL)
	if err != nil {
		return nil, err
	}
	if err := l.checkGHCommand(); err != nil {
		return nil, err
	}

	apiPath := fmt.Sprintf("repos/%s/%s/contents/%s", owner, repo, path)
	if ref != "" {
		apiPath += "?ref=" + ref
	}

	cmd := exec.CommandContext(ctx, "gh", "api", apiPath, "--jq", ".content")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("gh command failed: %s", stderr.String())
		}
		return nil, fmt.Errorf("gh command failed: %w", err)
	}

	encoded := strings.TrimSpace(stdout.String())
	if encoded == "" {
		return nil, fmt.Errorf("empty response from GitHub for %s", githubURL)
	}
	// The contents API returns base64 with embedded newlines.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return content, nil
}

// checkGHCommand verifies that the gh CLI is installed and authenticated.
func (l *Loader) checkGHCommand() error {
	cmd := exec.Command("gh", "auth", "status")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "not found") || strings.Contains(err.Error(), "executable file not found") {
			return fmt.Errorf("gh CLI is not installed. Please install it from https://cli.github.com/")
		}
		if strings.Contains(stderr.String(), "not logged in") {
			return fmt.Errorf("gh CLI is not authenticated. Please run 'gh auth login' first")
		}
		return fmt.Errorf("gh auth check failed: %s", stderr.String())
	}
	return nil
}
