// Package harness runs YAML scenarios against stores composed from CUE
// bundle declarations.
//
// # Scenario Format
//
//	name: clamp
//	description: "Counter resets once it passes two"
//	bundles: ../bundles/counter
//	initial:
//	  counter: 0
//	steps:
//	  - action: doIncrement
//	  - dispatch: {type: ADD, payload: 2}
//	  - batch:
//	      - {type: INC}
//	      - {type: INC}
//	  - flush: true
//	assertions:
//	  - type: select
//	    selector: selectCount
//	    expect: 0
//	  - type: state
//	    slice: counter
//	    expect: 0
//	  - type: notified
//	    selector: selectCount
//	    count: 4
//
// The bundles path is resolved relative to the scenario file.
//
// # Assertion Types
//
//   - select: a selector evaluates to expect
//   - state: a state slice equals expect
//   - notified: a selector's value was delivered to subscribers count times
//   - error: some step failed with an error containing contains
//
// Values are compared by their canonical JSON, so 3, int64(3) and 3.0 are
// equal.
//
// # Deterministic Testing
//
// Every run gets a fixed store ID, a fake clock for the reactor loop guard,
// and a fresh in-memory persistence cache. The trace records each reduced
// action with its sequence number and each subscriber notification with the
// values that changed, which makes it stable enough for golden comparison:
//
//	go test ./internal/harness -update
package harness
