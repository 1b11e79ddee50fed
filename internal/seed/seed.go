// Package seed holds the reference data loaded by the seed command.
package seed

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var files embed.FS

// Course is a university course seed row.
type Course struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

type coursesFile struct {
	Courses []Course `yaml:"courses"`
}

type frameworksFile struct {
	Frameworks []string `yaml:"frameworks"`
}

type languagesFile struct {
	ProgrammingLanguages []string `yaml:"programming_languages"`
}

// Courses returns the APU IT courses.
func Courses() ([]Course, error) {
	var f coursesFile
	if err := load("data/courses.yaml", &f); err != nil {
		return nil, err
	}
	return f.Courses, nil
}

// Frameworks returns the framework names.
func Frameworks() ([]string, error) {
	var f frameworksFile
	if err := load("data/frameworks.yaml", &f); err != nil {
		return nil, err
	}
	return f.Frameworks, nil
}

// ProgrammingLanguages returns the programming language names.
func ProgrammingLanguages() ([]string, error) {
	var f languagesFile
	if err := load("data/languages.yaml", &f); err != nil {
		return nil, err
	}
	return f.ProgrammingLanguages, nil
}

func load(name string, out any) error {
	data, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", name, err)
	}
	return nil
}
