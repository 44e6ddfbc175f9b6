// Package circuitbreaker stops the client from hammering an already-failing
// backend while allowing rate-limited automatic recovery probing.
//
// A closed circuit passes calls through and counts consecutive failures;
// reaching the failure threshold opens it. An open circuit rejects calls
// immediately with a typed error until the recovery timeout elapses, then a
// half-open circuit lets real probe calls through: a success streak closes
// it, a single failure re-opens it.
//
// The Registry shares one breaker per logical service name, with pre-tuned
// configs for the platform's backend subsystems.
package circuitbreaker
