package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/planner-api/internal/models"
)

// planFile is the on-disk description of one student's plan and the catalog data it needs.
type planFile struct {
	Student   string                  `yaml:"student"`
	Timezone  string                  `yaml:"timezone"`
	Events    []models.PlanEvent      `yaml:"events"`
	Sections  []models.PlannedSection `yaml:"sections"`
	Completed []string                `yaml:"completed"`
	Catalog   catalogFile             `yaml:"requisites"`
}

type catalogFile struct {
	Prerequisites map[string][]models.RequisiteGroup  `yaml:"prerequisites"`
	Corequisites  map[string][]models.RequisiteCourse `yaml:"corequisites"`
}

func loadPlanFile(path string) (*planFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	return decodePlan(f)
}

func decodePlan(r io.Reader) (*planFile, error) {
	var plan planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if plan.Student == "" {
		plan.Student = "local"
	}
	return &plan, nil
}

// staticPlan serves a decoded plan file through the same interfaces the database does.
type staticPlan struct {
	plan *planFile
}

func (s staticPlan) ListEvents(ctx context.Context, studentID, term string, year int) ([]models.PlanEvent, error) {
	return s.plan.Events, nil
}

func (s staticPlan) ListPlannedSections(ctx context.Context, studentID, term string, year int) ([]models.PlannedSection, error) {
	out := make([]models.PlannedSection, 0, len(s.plan.Sections))
	for _, section := range s.plan.Sections {
		if section.TermName != "" && (section.TermName != term || section.TermYear != year) {
			continue
		}
		out = append(out, section)
	}
	return out, nil
}

func (s staticPlan) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	return s.plan.Completed, nil
}

func (s staticPlan) Prerequisites(ctx context.Context, courseID string) ([]models.RequisiteGroup, error) {
	return s.plan.Catalog.Prerequisites[courseID], nil
}

func (s staticPlan) Corequisites(ctx context.Context, courseID string) ([]models.RequisiteCourse, error) {
	return s.plan.Catalog.Corequisites[courseID], nil
}
