package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/memtwin/memtwin/internal/config"
)

// DetectProject determines the project name used to scope episodes.
// Priority: explicit tool input > config default > git origin > cwd
// basename.
func DetectProject(explicit string, cfg *config.Config) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultProject != "" {
		return cfg.DefaultProject
	}
	if origin := gitOriginName(); origin != "" {
		return origin
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Base(cwd)
	}
	return "default"
}

// gitOriginName extracts the repo name from the git remote origin URL.
func gitOriginName() string {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return parseRepoName(strings.TrimSpace(string(output)))
}

// parseRepoName extracts the repo name from a git URL.
// Handles: git@github.com:owner/repo.git, https://github.com/owner/repo.git
func parseRepoName(url string) string {
	if url == "" {
		return ""
	}

	url = strings.TrimSuffix(url, ".git")

	// SSH format: git@github.com:owner/repo
	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) == 2 {
			pathParts := strings.Split(parts[1], "/")
			if len(pathParts) > 0 {
				return pathParts[len(pathParts)-1]
			}
		}
	}

	// HTTPS format: https://github.com/owner/repo
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		parts := strings.Split(url, "/")
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}

	return ""
}
