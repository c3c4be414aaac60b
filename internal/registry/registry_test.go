package registry_test

import (
	"errors"
	"testing"

	"reelsmith/internal/registry"
)

func TestDefaultRegistryValidates(t *testing.T) {
	graphs := registry.Default()
	for _, workflowType := range graphs.Types() {
		phases, err := graphs.PhasesFor(workflowType)
		if err != nil {
			t.Fatalf("PhasesFor(%s) failed: %v", workflowType, err)
		}
		if len(phases) == 0 {
			t.Fatalf("expected phases for %s", workflowType)
		}
	}
}

func TestFullPipelineBarrier(t *testing.T) {
	graphs := registry.Default()
	phases, err := graphs.PhasesFor(registry.FullPipeline)
	if err != nil {
		t.Fatalf("PhasesFor failed: %v", err)
	}
	var barrier *registry.PhaseSpec
	for i := range phases {
		if phases[i].Name == registry.PhaseGather {
			barrier = &phases[i]
		}
	}
	if barrier == nil {
		t.Fatal("expected asset_gathering phase")
	}
	if !barrier.Barrier {
		t.Error("asset_gathering should be a barrier")
	}
	if len(barrier.DependsOn) != 3 {
		t.Errorf("expected three fan-in edges, got %v", barrier.DependsOn)
	}
}

func TestPhasesForUnknownType(t *testing.T) {
	graphs := registry.Default()
	if _, err := graphs.PhasesFor("no_such_type"); !errors.Is(err, registry.ErrUnknownWorkflowType) {
		t.Fatalf("expected ErrUnknownWorkflowType, got %v", err)
	}
}

func TestPhasesForReturnsCopy(t *testing.T) {
	graphs := registry.Default()
	first, err := graphs.PhasesFor(registry.QuickGenerate)
	if err != nil {
		t.Fatalf("PhasesFor failed: %v", err)
	}
	first[0].Name = "mutated"
	second, err := graphs.PhasesFor(registry.QuickGenerate)
	if err != nil {
		t.Fatalf("PhasesFor failed: %v", err)
	}
	if second[0].Name == "mutated" {
		t.Fatal("registry graph was mutated through the returned slice")
	}
}

func TestNewRejectsCycles(t *testing.T) {
	_, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{
		registry.QuickGenerate: {
			{Name: "a", DependsOn: []string{"b"}},
			{Name: "b", DependsOn: []string{"a"}},
		},
	})
	if !errors.Is(err, registry.ErrCyclicGraph) {
		t.Fatalf("expected ErrCyclicGraph, got %v", err)
	}
}

func TestNewRejectsSelfDependency(t *testing.T) {
	_, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{
		registry.QuickGenerate: {
			{Name: "a", DependsOn: []string{"a"}},
		},
	})
	if !errors.Is(err, registry.ErrCyclicGraph) {
		t.Fatalf("expected ErrCyclicGraph, got %v", err)
	}
}

func TestNewRejectsUnknownDependency(t *testing.T) {
	_, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{
		registry.QuickGenerate: {
			{Name: "a", DependsOn: []string{"missing"}},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{
		registry.QuickGenerate: {
			{Name: "a"},
			{Name: "a"},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate phase name")
	}
}

func TestNewRejectsEmptyGraph(t *testing.T) {
	_, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{
		registry.QuickGenerate: {},
	})
	if err == nil {
		t.Fatal("expected error for empty graph")
	}
}

func TestParseWorkflowType(t *testing.T) {
	cases := []struct {
		input string
		want  registry.WorkflowType
		ok    bool
	}{
		{"full_pipeline", registry.FullPipeline, true},
		{" Quick_Generate ", registry.QuickGenerate, true},
		{"search_and_script", registry.SearchAndScript, true},
		{"article_to_script", registry.ArticleToScript, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := registry.ParseWorkflowType(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseWorkflowType(%q) = (%q, %t), want (%q, %t)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
