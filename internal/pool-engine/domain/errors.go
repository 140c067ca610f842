package domain

import "errors"

// Erros de autorização: sempre fatais para a chamada, nunca re-tentados.
var (
	ErrNotOwner   = errors.New("caller is not the owner")
	ErrOnlyOracle = errors.New("only the oracle may fulfill requests")
)

// Erros de validação: erro do chamador, devolvido como está.
var (
	ErrInvalidCountry         = errors.New("invalid country code")
	ErrInvalidArtistCount     = errors.New("top list must have exactly 10 artists")
	ErrBetAmountZero          = errors.New("bet amount must be positive")
	ErrBetTooHigh             = errors.New("bet amount above maximum")
	ErrArtistNotInLeaderboard = errors.New("artist not in current top-10")
	ErrInvalidAmount          = errors.New("amount must be positive")
)

// Violações de máquina de estado: o cliente está com visão desatualizada;
// deve recarregar o estado do pool antes de tentar de novo.
var (
	ErrPoolNotOpen         = errors.New("pool is not open for betting")
	ErrPoolAlreadyClosed   = errors.New("pool already closed")
	ErrPoolNotReadyToClose = errors.New("betting period not ended yet")
	ErrBetAlreadyPlaced    = errors.New("bet already placed for this pool")
	ErrBettingClosed       = errors.New("betting manually closed")
	ErrBetNotFound         = errors.New("no bet for this pool")
	ErrBetAlreadySettled   = errors.New("bet already settled")
)

// Exaustão de recursos e correlação com o oráculo.
var (
	ErrNoPayoutToClaim         = errors.New("no payout to claim")
	ErrInsufficientSurplus     = errors.New("amount exceeds unreserved surplus")
	ErrUnknownRequest          = errors.New("unknown oracle request id")
	ErrRequestAlreadyFulfilled = errors.New("oracle request already fulfilled")
	ErrRequestMismatch         = errors.New("fulfillment does not match request")
	ErrPaused                  = errors.New("engine is paused")
	ErrWithdrawalNotFound      = errors.New("withdrawal request not found")
	ErrCooldownActive          = errors.New("withdrawal cooldown still active")
)
