package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gopkg.in/yaml.v3"
)

// PositionsFile is the YAML layout of the position classification table
type PositionsFile struct {
	Rules       []models.PositionRule `yaml:"rules"`
	Departments []string              `yaml:"departments"`
}

// DefaultDepartments are the club's departments when no file overrides them
var DefaultDepartments = []string{
	"Asset Management",
	"Research",
	"Markets",
	"Marketing",
	"Human Resources",
	"IT",
}

// LoadPositions loads the classification table from configPath.
// A missing file yields the built-in defaults.
func LoadPositions(configPath string) (*models.PositionClassifier, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Position config not found, using defaults", "path", configPath)
			return models.NewPositionClassifier(nil, DefaultDepartments), nil
		}
		return nil, fmt.Errorf("failed to read position config %s: %w", configPath, err)
	}

	var file PositionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse position config %s: %w", configPath, err)
	}

	for i, rule := range file.Rules {
		if rule.Title == "" || !rule.Role.IsValid() {
			return nil, fmt.Errorf("position rule %d: title and a valid role are required", i)
		}
		switch rule.Match {
		case "":
			file.Rules[i].Match = models.MatchExact
		case models.MatchExact, models.MatchPrefix, models.MatchContains:
		default:
			return nil, fmt.Errorf("position rule %d: unknown match %q", i, rule.Match)
		}
		if rule.Scope == "" {
			file.Rules[i].Scope = models.RoleScopes[rule.Role]
		}
	}

	var rules []models.PositionRule
	if len(file.Rules) > 0 {
		rules = file.Rules
	}
	departments := file.Departments
	if len(departments) == 0 {
		departments = DefaultDepartments
	}

	slog.Info("Loaded position config", "path", configPath, "rules", len(file.Rules), "departments", len(departments))
	return models.NewPositionClassifier(rules, departments), nil
}

// LoadPositionsOrDefault falls back to the defaults when the file is unusable
func LoadPositionsOrDefault(configPath string) *models.PositionClassifier {
	classifier, err := LoadPositions(configPath)
	if err != nil {
		slog.Warn("Invalid position config, using defaults", "error", err)
		return models.NewPositionClassifier(nil, DefaultDepartments)
	}
	return classifier
}
