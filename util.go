package main

import (
	"fmt"
	"os"
	"strings"

	"go.xrstf.de/memorable_milestones/pkg/github"
	"go.xrstf.de/memorable_milestones/pkg/processor"

	"gopkg.in/yaml.v3"
)

type repositoryList []*github.Repository

func (l *repositoryList) String() string {
	names := []string{}
	for _, repo := range *l {
		names = append(names, repo.FullName())
	}

	return strings.Join(names, ",")
}

func (l *repositoryList) Set(value string) error {
	repo, err := github.ParseRepository(value)
	if err != nil {
		return err
	}

	*l = append(*l, repo)

	return nil
}

// githubToken returns the token either from the regular environment or
// from the input variable set by the GitHub Actions runner.
func githubToken() string {
	for _, name := range []string{"GITHUB_TOKEN", "INPUT_REPO-TOKEN", "INPUT_REPO_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			return token
		}
	}

	return ""
}

type report struct {
	Results []*processor.Result `yaml:"results"`
}

func writeReport(filename string, results []*processor.Result) error {
	content, err := yaml.Marshal(report{Results: results})
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return os.WriteFile(filename, content, 0644)
}
