// Package harness runs migration scenarios described in YAML.
//
// A scenario writes a record with one schema and loads it with another,
// then checks what the migration scope did.
//
// # Scenario Format
//
//	name: monster_rename
//	description: "Health becomes HitPoints in version 2"
//	write:
//	  schema: schemas/monster_v1.cue
//	  class: Monster
//	load:
//	  schema: schemas/monster_v2.cue
//	  class: Monster        # defaults to write.class
//	values:
//	  Health: 40
//	  Name: Orc
//	handler: rules          # rules (default) or none
//	assertions:
//	  - type: migrated
//	    expect: true
//	  - type: versions
//	    asset: 1
//	    code: 2
//	  - type: tree_contains
//	    field: Health
//	    value: 40
//	  - type: field_equals
//	    field: HitPoints
//	    value: 40
//	  - type: handler_calls
//	    count: 1
//	  - type: cursor_restored
//
// Schema paths are relative to the scenario file.
//
// # Assertion Types
//
//   - migrated: whether the handler ran
//   - outdated: whether the version gate fired
//   - versions: the asset and code versions the scope saw
//   - tree_contains: the record's generic tree has the field, optionally
//     with the given plain value
//   - field_equals: the loaded instance field has the given plain value
//   - handler_calls: how many times the handler ran
//   - cursor_restored: the stream cursor ended where the normal load left it
//
// Values compare in plain form: numbers by value, lists element-wise,
// maps and structs by the keys the expectation names.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/monster_rename.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
