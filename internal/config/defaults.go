package config

import "time"

// Built-in fallbacks, applied when neither the scenario nor the suite
// defaults set a value.
const (
	DefaultSettleWait      = Duration(2 * time.Second)
	DefaultShutdownTimeout = Duration(5 * time.Second)
	DefaultTrafficTimeout  = Duration(30 * time.Second)
)

// DefaultPrivilegeEscalation is prepended to the agent argv when the suite
// file does not configure escalation. The -n flag keeps a misconfigured sudo
// from hanging the run on a password prompt.
func DefaultPrivilegeEscalation() []string {
	return []string{"sudo", "-n"}
}

// MergeScenarioDefaults returns a copy of sc with the suite defaults and the
// built-in fallbacks applied. Neither input is mutated; callers treat the
// result as read-only.
func MergeScenarioDefaults(defaults Defaults, sc ScenarioSpec) ScenarioSpec {
	merged := sc

	merged.Agent = mergeAgent(defaults.Agent, sc.Agent)
	merged.Validation = mergeValidation(defaults.Validation, sc.Validation)

	if merged.Traffic.Timeout == 0 {
		merged.Traffic.Timeout = DefaultTrafficTimeout
	}

	return merged
}

func mergeAgent(def, override *AgentConfig) *AgentConfig {
	var out AgentConfig
	if def != nil {
		out = *def
	}
	if override != nil {
		if override.BinaryPath != "" {
			out.BinaryPath = override.BinaryPath
		}
		if override.Flags != nil {
			out.Flags = override.Flags
		}
		if override.SettleWait != 0 {
			out.SettleWait = override.SettleWait
		}
		if override.ShutdownTimeout != 0 {
			out.ShutdownTimeout = override.ShutdownTimeout
		}
		// A present-but-empty list is an explicit "no escalation", so only
		// nil falls through to the default.
		if override.PrivilegeEscalation != nil {
			out.PrivilegeEscalation = override.PrivilegeEscalation
		}
	}

	if out.SettleWait == 0 {
		out.SettleWait = DefaultSettleWait
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = DefaultShutdownTimeout
	}
	if out.PrivilegeEscalation == nil {
		out.PrivilegeEscalation = DefaultPrivilegeEscalation()
	}

	return &out
}

func mergeValidation(def *ValidationDefault, v ValidationSpec) ValidationSpec {
	out := v

	if def != nil {
		if out.Count == nil && def.Count != nil {
			count := *def.Count
			out.Count = &count
		}
		out.Compare = mergeCompare(def.Compare, v.Compare)
	} else if v.Compare != nil {
		compare := *v.Compare
		out.Compare = &compare
	}

	return out
}

func mergeCompare(def, override *CompareConfig) *CompareConfig {
	var out CompareConfig
	if def != nil {
		out = *def
	}
	if override != nil {
		if override.IgnoreOrder != nil {
			out.IgnoreOrder = override.IgnoreOrder
		}
		if override.ExcludePaths != nil {
			out.ExcludePaths = override.ExcludePaths
		}
	}
	return &out
}
