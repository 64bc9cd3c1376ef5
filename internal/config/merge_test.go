package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestMergeScenarioDefaults_InheritsAgent(t *testing.T) {
	defaults := Defaults{
		Agent: &AgentConfig{
			BinaryPath: "./bin/observer",
			Flags:      []string{"--mode", "userland"},
			SettleWait: Duration(time.Second),
		},
	}
	sc := ScenarioSpec{Name: "a"}

	merged := MergeScenarioDefaults(defaults, sc)

	require.NotNil(t, merged.Agent)
	assert.Equal(t, "./bin/observer", merged.Agent.BinaryPath)
	assert.Equal(t, []string{"--mode", "userland"}, merged.Agent.Flags)
	assert.Equal(t, time.Second, merged.Agent.SettleWait.Duration())
	// Unset everywhere falls back to the built-ins
	assert.Equal(t, DefaultShutdownTimeout, merged.Agent.ShutdownTimeout)
	assert.Equal(t, []string{"sudo", "-n"}, merged.Agent.PrivilegeEscalation)
	assert.Equal(t, DefaultTrafficTimeout, merged.Traffic.Timeout)
}

func TestMergeScenarioDefaults_ScenarioWins(t *testing.T) {
	defaults := Defaults{
		Agent: &AgentConfig{
			BinaryPath:      "./bin/observer",
			Flags:           []string{"--mode", "userland"},
			ShutdownTimeout: Duration(3 * time.Second),
		},
	}
	sc := ScenarioSpec{
		Name: "a",
		Agent: &AgentConfig{
			Flags:      []string{"--mode", "ebpf"},
			SettleWait: Duration(250 * time.Millisecond),
		},
		Traffic: TrafficSpec{Timeout: Duration(time.Minute)},
	}

	merged := MergeScenarioDefaults(defaults, sc)

	assert.Equal(t, "./bin/observer", merged.Agent.BinaryPath, "unset field inherits")
	assert.Equal(t, []string{"--mode", "ebpf"}, merged.Agent.Flags, "set field wins")
	assert.Equal(t, 250*time.Millisecond, merged.Agent.SettleWait.Duration())
	assert.Equal(t, 3*time.Second, merged.Agent.ShutdownTimeout.Duration())
	assert.Equal(t, time.Minute, merged.Traffic.Timeout.Duration())
}

func TestMergeScenarioDefaults_ExplicitEmptyEscalation(t *testing.T) {
	defaults := Defaults{Agent: &AgentConfig{BinaryPath: "./bin/observer"}}
	sc := ScenarioSpec{
		Name:  "a",
		Agent: &AgentConfig{PrivilegeEscalation: []string{}},
	}

	merged := MergeScenarioDefaults(defaults, sc)

	require.NotNil(t, merged.Agent.PrivilegeEscalation)
	assert.Empty(t, merged.Agent.PrivilegeEscalation, "explicit empty list means no escalation")
}

func TestMergeScenarioDefaults_ValidationDefaults(t *testing.T) {
	defaults := Defaults{
		Agent: &AgentConfig{BinaryPath: "./bin/observer"},
		Validation: &ValidationDefault{
			Count: &CountBounds{Min: intPtr(1)},
			Compare: &CompareConfig{
				IgnoreOrder:  boolPtr(true),
				ExcludePaths: []string{`root\[\d+\]\.timestamp`},
			},
		},
	}
	sc := ScenarioSpec{
		Name: "a",
		Validation: ValidationSpec{
			BaselinePath: "a.jsonl",
			Compare:      &CompareConfig{IgnoreOrder: boolPtr(false)},
		},
	}

	merged := MergeScenarioDefaults(defaults, sc)

	require.NotNil(t, merged.Validation.Count)
	assert.Equal(t, 1, *merged.Validation.Count.Min, "count inherited from defaults")
	require.NotNil(t, merged.Validation.Compare)
	assert.False(t, merged.Validation.Compare.IgnoreOrderEnabled(), "scenario override wins")
	assert.Equal(t, []string{`root\[\d+\]\.timestamp`}, merged.Validation.Compare.ExcludePaths,
		"exclude paths inherited from defaults")
}

func TestMergeScenarioDefaults_ScenarioCountWins(t *testing.T) {
	defaults := Defaults{
		Agent:      &AgentConfig{BinaryPath: "./bin/observer"},
		Validation: &ValidationDefault{Count: &CountBounds{Exact: intPtr(10)}},
	}
	sc := ScenarioSpec{
		Name: "a",
		Validation: ValidationSpec{
			BaselinePath: "a.jsonl",
			Count:        &CountBounds{Exact: intPtr(3)},
		},
	}

	merged := MergeScenarioDefaults(defaults, sc)
	assert.Equal(t, 3, *merged.Validation.Count.Exact)
}

func TestMergeScenarioDefaults_Pure(t *testing.T) {
	defaults := Defaults{
		Agent: &AgentConfig{BinaryPath: "./bin/observer", Flags: []string{"-v"}},
		Validation: &ValidationDefault{
			Count:   &CountBounds{Exact: intPtr(5)},
			Compare: &CompareConfig{ExcludePaths: []string{"x"}},
		},
	}
	sc := ScenarioSpec{
		Name:       "a",
		Agent:      &AgentConfig{Flags: []string{"-q"}},
		Validation: ValidationSpec{BaselinePath: "a.jsonl"},
	}

	first := MergeScenarioDefaults(defaults, sc)
	second := MergeScenarioDefaults(defaults, sc)

	// Inputs must be untouched
	assert.Nil(t, sc.Validation.Count)
	assert.Equal(t, []string{"-q"}, sc.Agent.Flags)
	assert.Equal(t, "", sc.Agent.BinaryPath)
	assert.Equal(t, []string{"-v"}, defaults.Agent.Flags)
	assert.Equal(t, 5, *defaults.Validation.Count.Exact)

	// And merging twice must give the same answer
	assert.Equal(t, first, second)

	// Mutating one result must not bleed into the other
	first.Agent.BinaryPath = "changed"
	assert.Equal(t, "./bin/observer", second.Agent.BinaryPath)
	assert.Equal(t, "./bin/observer", defaults.Agent.BinaryPath)
}

func TestCompareConfig_IgnoreOrderEnabled(t *testing.T) {
	var nilCompare *CompareConfig
	assert.True(t, nilCompare.IgnoreOrderEnabled())
	assert.True(t, (&CompareConfig{}).IgnoreOrderEnabled())
	assert.False(t, (&CompareConfig{IgnoreOrder: boolPtr(false)}).IgnoreOrderEnabled())
	assert.True(t, (&CompareConfig{IgnoreOrder: boolPtr(true)}).IgnoreOrderEnabled())
}
