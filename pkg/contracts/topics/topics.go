package topics

const (
	// Pools
	PoolOpened    = "pool_opened"
	Top10Updated  = "top10_updated"
	PoolClosed    = "pool_closed"

	// Bets
	BetPlaced     = "bet_placed"
	BetSettled    = "bet_settled"
	PayoutClaimed = "payout_claimed"

	// Oracle
	OracleRequests = "oracle_requests"

	// Admin
	Withdrawals = "withdrawals"

	// DLQs
	OracleRequestsDLQ = "oracle_requests_dlq"
)
