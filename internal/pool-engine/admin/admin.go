package admin

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Publisher emite os fatos de saque. Pode ser nil em testes.
type Publisher interface {
	PublishWithdrawal(ctx context.Context, e events.Withdrawal) error
}

// Store persiste pedidos de saque. Pode ser nil em testes.
type Store interface {
	SaveWithdrawal(ctx context.Context, id string, amountCents int64, executableAt time.Time, stage string) error
}

// Withdrawal é um saque em duas fases: request agenda, execute paga após o
// cooldown. O desenho em duas fases reduz o risco de drenagem abrupta.
type Withdrawal struct {
	ID           string    `json:"id"`
	AmountCents  int64     `json:"amount_cents"`
	RequestedAt  time.Time `json:"requested_at"`
	ExecutableAt time.Time `json:"executable_at"`
	Executed     bool      `json:"executed"`
}

// Controls concentra pausa global e extração de excedente pelo owner.
// A autenticação de principal acontece na borda HTTP; aqui ficam as regras.
type Controls struct {
	Log      *zap.Logger
	Treasury *treasury.Treasury
	Cooldown time.Duration

	Pub   Publisher
	Store Store
	Clock func() time.Time

	paused      bool
	mu          sync.Mutex
	withdrawals map[string]*Withdrawal
}

func New(log *zap.Logger, tr *treasury.Treasury, cooldown time.Duration) *Controls {
	return &Controls{
		Log:         log,
		Treasury:    tr,
		Cooldown:    cooldown,
		Clock:       time.Now,
		withdrawals: make(map[string]*Withdrawal),
	}
}

// Pause liga o interruptor global: placeBet e openAllDailyPools passam a
// ser rejeitados; leituras continuam funcionando.
func (c *Controls) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
	c.Log.Info("engine paused")
}

func (c *Controls) Unpause() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.Log.Info("engine unpaused")
}

// Paused satisfaz registry.Pauser.
func (c *Controls) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// RequestWithdrawal agenda um saque do excedente; o valor é validado de
// novo na execução, contra o excedente daquele momento.
func (c *Controls) RequestWithdrawal(ctx context.Context, amountCents int64) (Withdrawal, error) {
	if amountCents <= 0 {
		return Withdrawal{}, domain.ErrInvalidAmount
	}
	if amountCents > c.Treasury.Surplus() {
		return Withdrawal{}, domain.ErrInsufficientSurplus
	}

	now := c.Clock()
	w := &Withdrawal{
		ID:           uuid.NewString(),
		AmountCents:  amountCents,
		RequestedAt:  now,
		ExecutableAt: now.Add(c.Cooldown),
	}
	c.mu.Lock()
	c.withdrawals[w.ID] = w
	c.mu.Unlock()

	if c.Store != nil {
		if err := c.Store.SaveWithdrawal(ctx, w.ID, amountCents, w.ExecutableAt, "REQUESTED"); err != nil {
			c.Log.Warn("withdrawal persist failed", zap.String("withdrawal_id", w.ID), zap.Error(err))
		}
	}
	if c.Pub != nil {
		_ = c.Pub.PublishWithdrawal(ctx, events.Withdrawal{
			WithdrawalID: w.ID,
			Stage:        "REQUESTED",
			AmountCents:  amountCents,
			ExecutableAt: w.ExecutableAt.Unix(),
			TsUnixMs:     time.Now().UnixMilli(),
		})
	}
	return *w, nil
}

// ExecuteWithdrawal paga um saque agendado depois do cooldown.
func (c *Controls) ExecuteWithdrawal(ctx context.Context, id string) error {
	now := c.Clock()

	c.mu.Lock()
	w, ok := c.withdrawals[id]
	if !ok || w.Executed {
		c.mu.Unlock()
		return domain.ErrWithdrawalNotFound
	}
	if now.Before(w.ExecutableAt) {
		c.mu.Unlock()
		return domain.ErrCooldownActive
	}
	w.Executed = true
	amount := w.AmountCents
	c.mu.Unlock()

	if err := c.Treasury.Withdraw(ctx, amount, "withdraw:"+id); err != nil {
		// Excedente encolheu desde o request; devolve o pedido à fila.
		c.mu.Lock()
		w.Executed = false
		c.mu.Unlock()
		return err
	}

	if c.Store != nil {
		if serr := c.Store.SaveWithdrawal(ctx, id, amount, w.ExecutableAt, "EXECUTED"); serr != nil {
			c.Log.Warn("withdrawal persist failed", zap.String("withdrawal_id", id), zap.Error(serr))
		}
	}
	if c.Pub != nil {
		_ = c.Pub.PublishWithdrawal(ctx, events.Withdrawal{
			WithdrawalID: id,
			Stage:        "EXECUTED",
			AmountCents:  amount,
			TsUnixMs:     time.Now().UnixMilli(),
		})
	}
	c.Log.Info("withdrawal executed", zap.String("withdrawal_id", id), zap.Int64("amount_cents", amount))
	return nil
}

// EmergencyWithdraw saca imediatamente todo o excedente não reservado.
// Mantido do desenho original; o caminho preferido é o saque em duas fases.
func (c *Controls) EmergencyWithdraw(ctx context.Context) (int64, error) {
	amount := c.Treasury.Surplus()
	if amount <= 0 {
		return 0, domain.ErrInsufficientSurplus
	}
	id := uuid.NewString()
	if err := c.Treasury.Withdraw(ctx, amount, "emergency:"+id); err != nil {
		return 0, err
	}
	if c.Pub != nil {
		_ = c.Pub.PublishWithdrawal(ctx, events.Withdrawal{
			WithdrawalID: id,
			Stage:        "EMERGENCY",
			AmountCents:  amount,
			TsUnixMs:     time.Now().UnixMilli(),
		})
	}
	c.Log.Warn("emergency withdrawal", zap.Int64("amount_cents", amount))
	return amount, nil
}
