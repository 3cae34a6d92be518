package core

import "time"

// Metrics records operational measurements of the redemption flow
type Metrics interface {
	// ObserveRedemption counts a redemption by outcome (completed, failed, rejected) and reason
	ObserveRedemption(outcome, reason string)
	// ObserveGatewayCall records the latency of one authorization call and its decision
	ObserveGatewayCall(decision string, duration time.Duration)
	// ObserveFinalizeAttempt counts finalize attempts by result (ok, retry, exhausted)
	ObserveFinalizeAttempt(result string)
	// IncSlotRaceLost counts approvals that lost the last slot to a concurrent redemption
	IncSlotRaceLost()
	// AddStaleRecovered counts ledger rows forced to a terminal status by the sweeper
	AddStaleRecovered(status string, count int64)
}
