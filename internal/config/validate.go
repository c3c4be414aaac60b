package config

import "errors"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	if c.Workflow.MaxCostUSD <= 0 {
		return errors.New("workflow.max_cost_usd must be greater than zero")
	}
	if c.Workflow.TimeoutMinutes <= 0 {
		return errors.New("workflow.timeout_minutes must be greater than zero")
	}
	if c.Workflow.VisualBudget < 1 {
		return errors.New("workflow.visual_budget must be at least 1")
	}
	if c.Workflow.HistoryLimit < 1 {
		return errors.New("workflow.history_limit must be at least 1")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New(`logging.format must be "console" or "json"`)
	}
	return nil
}
