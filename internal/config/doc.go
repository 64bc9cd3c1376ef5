// Package config defines and loads the YAML suite files that drive spycheck.
//
// A suite file declares a schema version, optional suite-wide defaults, and a
// list of scenarios. Each scenario describes the full lifecycle of one
// end-to-end check: commands to prepare the environment, how to launch the
// observer agent, the traffic workload to run underneath it, how to validate
// the records the agent captured, and cleanup commands.
//
// # Suite File Structure
//
//	version: "1.0"
//
//	defaults:
//	  agent:
//	    binaryPath: ./bin/observer
//	    flags: ["--mode", "userland"]
//	    settleWait: 2s
//	    shutdownTimeout: 5s
//	  validation:
//	    compare:
//	      ignoreOrder: true
//	      excludePaths:
//	        - 'root\[\d+\]\.timestamp'
//
//	scenarios:
//	  - name: "stdio-basic"
//	    description: "Tool calls over stdio are captured"
//	    preCommands:
//	      - command: ["./scripts/build-fixtures.sh"]
//	        timeout: 60s
//	    traffic:
//	      command: ["./bin/spycheck", "mock-traffic"]
//	      timeout: 30s
//	    validation:
//	      baselinePath: "testdata/stdio-basic.jsonl"
//	      messageCount:
//	        min: 4
//	    postCommands:
//	      - command: ["rm", "-f", "/tmp/fixture.sock"]
//
// # Defaults and Merging
//
// Suite defaults are merged into every scenario just before it runs. A
// scenario field wins when it is set; unset fields inherit from defaults, and
// anything still unset falls back to the built-in values (2s settle, 5s
// shutdown timeout, 30s traffic timeout, "sudo -n" escalation). The merge
// never mutates the loaded configuration, so a scenario can be merged and run
// any number of times.
//
// # Durations
//
// Every duration field accepts Go syntax ("5s", "250ms") or a bare number of
// seconds ("2", "0.5").
//
// # Validation
//
// LoadConfig rejects files up front rather than failing mid-run: unsupported
// versions, duplicate or missing scenario names, empty command vectors,
// missing baseline paths, contradictory message count bounds, and exclude
// patterns that do not compile as regular expressions all return
// ErrInvalidConfig with a message naming the offending scenario.
package config
