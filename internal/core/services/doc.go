// Package services implements the driving ports on top of the driven ones.
//
// A run moves through four agent stages in order (parsing, retrieving,
// drafting, reviewing), each a single language-model call. Services keep
// no run state of their own; every call loads the run for its session from
// the RunStore and saves the next one.
package services
