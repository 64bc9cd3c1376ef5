package config

// SuiteConfig is the top-level structure of a suite file.
type SuiteConfig struct {
	// Version is the schema version of the suite file. Only "1.0" is accepted.
	Version string `yaml:"version"`
	// Defaults are merged into every scenario before it runs.
	Defaults Defaults `yaml:"defaults,omitempty"`
	// Scenarios are executed in file order. At least one is required.
	Scenarios []ScenarioSpec `yaml:"scenarios"`
}

// Defaults holds per-suite settings applied to scenarios that do not override them.
type Defaults struct {
	Agent      *AgentConfig       `yaml:"agent,omitempty"`
	Validation *ValidationDefault `yaml:"validation,omitempty"`
}

// ValidationDefault is the subset of ValidationSpec that makes sense suite-wide.
// A baseline path is always per-scenario.
type ValidationDefault struct {
	Count   *CountBounds   `yaml:"messageCount,omitempty"`
	Compare *CompareConfig `yaml:"compare,omitempty"`
}

// AgentConfig describes how to launch the observer binary for a scenario.
type AgentConfig struct {
	// BinaryPath is the observer binary under test.
	BinaryPath string `yaml:"binaryPath"`
	// Flags are appended to the agent argv after the managed output flag.
	Flags []string `yaml:"flags,omitempty"`
	// SettleWait is slept after the agent spawns, before traffic starts.
	SettleWait Duration `yaml:"settleWait,omitempty"`
	// ShutdownTimeout bounds the graceful interrupt before the agent is force-killed.
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`
	// PrivilegeEscalation is prepended to the agent argv, e.g. ["sudo", "-n"].
	// Omit the key to get the default; set an explicit empty list for none.
	PrivilegeEscalation []string `yaml:"privilegeEscalation,omitempty"`
}

// CommandSpec describes a single pre or post command of a scenario.
type CommandSpec struct {
	// Command is the argv to execute. The first element is the program.
	Command []string `yaml:"command"`
	// Background starts the command in its own process group and leaves it
	// running until scenario teardown.
	Background bool `yaml:"background,omitempty"`
	// PostStartWait is slept after a successful background spawn, giving the
	// process time to come up. Ignored for foreground commands.
	PostStartWait Duration `yaml:"postStartWait,omitempty"`
	// WorkDir overrides the working directory.
	WorkDir string `yaml:"workDir,omitempty"`
	// Env is overlaid onto the inherited environment; overlay wins on conflict.
	Env map[string]string `yaml:"env,omitempty"`
	// Timeout bounds foreground execution. Ignored for background commands.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// TrafficSpec describes the workload command that generates observable traffic.
type TrafficSpec struct {
	Command []string          `yaml:"command"`
	WorkDir string            `yaml:"workDir,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// CountBounds constrains how many records the agent must have captured.
// Exact is mutually exclusive with Min/Max; at least one bound must be set.
type CountBounds struct {
	Exact *int `yaml:"exact,omitempty"`
	Min   *int `yaml:"min,omitempty"`
	Max   *int `yaml:"max,omitempty"`
}

// CompareConfig tunes the structural comparison of captured records against
// the baseline.
type CompareConfig struct {
	// IgnoreOrder compares the record sets without regard to capture order.
	// Defaults to true when unset.
	IgnoreOrder *bool `yaml:"ignoreOrder,omitempty"`
	// ExcludePaths are regular expressions matched against record field paths
	// of the form root[2].timestamp; matching fields are ignored.
	ExcludePaths []string `yaml:"excludePaths,omitempty"`
}

// IgnoreOrderEnabled resolves the IgnoreOrder default.
func (c *CompareConfig) IgnoreOrderEnabled() bool {
	if c == nil || c.IgnoreOrder == nil {
		return true
	}
	return *c.IgnoreOrder
}

// ValidationSpec describes how a scenario's captured output is judged.
type ValidationSpec struct {
	// BaselinePath is the JSONL file holding the expected records, relative to
	// the suite file unless absolute.
	BaselinePath string `yaml:"baselinePath"`
	// Count, when set, is checked before the structural comparison.
	Count *CountBounds `yaml:"messageCount,omitempty"`
	// Compare tunes the structural comparison.
	Compare *CompareConfig `yaml:"compare,omitempty"`
}

// ScenarioSpec is one end-to-end scenario: optional setup commands, the agent
// under test, a traffic workload, validation, and optional cleanup commands.
type ScenarioSpec struct {
	// Name uniquely identifies the scenario within the suite.
	Name string `yaml:"name"`
	// Description is shown in listings and run output.
	Description string `yaml:"description,omitempty"`
	// PreCommands run before the agent starts, in order.
	PreCommands []CommandSpec `yaml:"preCommands,omitempty"`
	// Agent overrides the suite-wide agent defaults. Unset fields inherit.
	Agent *AgentConfig `yaml:"agent,omitempty"`
	// Traffic is the workload that generates the records under validation.
	Traffic TrafficSpec `yaml:"traffic"`
	// PostCommands run during teardown, after the agent stopped.
	PostCommands []CommandSpec `yaml:"postCommands,omitempty"`
	// Validation judges the captured output.
	Validation ValidationSpec `yaml:"validation"`
}
