package registry

// Phase names shared between the registry and the built-in pipeline bodies.
const (
	PhaseSearch       = "search"
	PhaseCrawl        = "crawl"
	PhaseStoreArticle = "store_article"
	PhaseScript       = "generate_script"
	PhaseStoreScript  = "store_script"
	PhasePrompts      = "prompt_generation"
	PhaseImages       = "image_generation"
	PhaseVoice        = "voice_generation"
	PhaseBroll        = "broll_search"
	PhaseGather       = "asset_gathering"
	PhasePublish      = "notion_integration"
	PhaseFinalize     = "finalize"
)

// Default returns the registry for the four built-in workflow types.
//
// In full_pipeline the image, voice, and b-roll phases fan out in
// parallel after prompt generation; asset_gathering is the barrier that
// fans them back in before publishing.
func Default() *Registry {
	graphs := map[WorkflowType][]PhaseSpec{
		FullPipeline: {
			{Name: PhaseSearch},
			{Name: PhaseCrawl, DependsOn: []string{PhaseSearch}},
			{Name: PhaseStoreArticle, DependsOn: []string{PhaseCrawl}},
			{Name: PhaseScript, DependsOn: []string{PhaseCrawl}},
			{Name: PhaseStoreScript, DependsOn: []string{PhaseScript}},
			{Name: PhasePrompts, DependsOn: []string{PhaseScript}},
			{Name: PhaseImages, DependsOn: []string{PhasePrompts}},
			{Name: PhaseVoice, DependsOn: []string{PhaseScript}},
			{Name: PhaseBroll, DependsOn: []string{PhasePrompts}},
			{Name: PhaseGather, DependsOn: []string{PhaseImages, PhaseVoice, PhaseBroll}, Barrier: true},
			{Name: PhasePublish, DependsOn: []string{PhaseGather}},
			{Name: PhaseFinalize, DependsOn: []string{PhasePublish}},
		},
		QuickGenerate: {
			{Name: PhaseSearch},
			{Name: PhaseScript, DependsOn: []string{PhaseSearch}},
		},
		SearchAndScript: {
			{Name: PhaseSearch},
			{Name: PhaseScript, DependsOn: []string{PhaseSearch}},
			{Name: PhaseStoreScript, DependsOn: []string{PhaseScript}},
		},
		ArticleToScript: {
			{Name: PhaseCrawl},
			{Name: PhaseScript, DependsOn: []string{PhaseCrawl}},
			{Name: PhaseStoreScript, DependsOn: []string{PhaseScript}},
		},
	}

	registry, err := New(graphs)
	if err != nil {
		// The built-in table is static; failing to validate it is a
		// programming error caught by the package tests.
		panic(err)
	}
	return registry
}
