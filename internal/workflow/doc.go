// Package workflow runs multi-phase executions over a dependency graph:
// eligible phases dispatch concurrently, barriers wait for whole fan-in
// groups, and progress is published to the event bus as phases terminate.
package workflow
