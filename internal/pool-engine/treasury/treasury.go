package treasury

import (
	"context"
	"sync"
	"time"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
)

// Tipos de movimento registrados no ledger do caixa.
const (
	MovementStake    = "STAKE"
	MovementPayout   = "PAYOUT"
	MovementWithdraw = "WITHDRAW"
)

// Movement é uma linha do ledger do caixa (espelho do wallet_ledger).
type Movement struct {
	Type        string
	AmountCents int64
	Ref         string
	At          time.Time
}

// Store persiste movimentos do caixa. Pode ser nil em testes.
type Store interface {
	SaveMovement(ctx context.Context, m Movement) error
}

// Treasury é o caixa do motor: tudo que entra em apostas fica disponível
// para pagamento; Reserved acompanha o total comprometido com pendingPayouts
// ainda não sacados. Saques do owner só alcançam o excedente.
type Treasury struct {
	mu       sync.Mutex
	balance  int64
	reserved int64
	store    Store
}

func New(store Store) *Treasury { return &Treasury{store: store} }

// Deposit credita o caixa (stake de aposta ou aporte do owner).
func (t *Treasury) Deposit(ctx context.Context, amount int64, ref string) {
	t.mu.Lock()
	t.balance += amount
	t.mu.Unlock()
	t.record(ctx, MovementStake, amount, ref)
}

// Reserve compromete até `want` centavos com um payout futuro e devolve o
// quanto de fato pôde ser comprometido. O corte aqui implementa o teto
// global: nunca se promete mais do que o caixa ainda não comprometido.
func (t *Treasury) Reserve(want int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	free := t.balance - t.reserved
	if free <= 0 {
		return 0
	}
	granted := want
	if granted > free {
		granted = free
	}
	t.reserved += granted
	return granted
}

// Pay consome uma reserva previamente concedida (transferência do claim).
func (t *Treasury) Pay(ctx context.Context, amount int64, ref string) {
	t.mu.Lock()
	t.reserved -= amount
	t.balance -= amount
	t.mu.Unlock()
	t.record(ctx, MovementPayout, amount, ref)
}

// Withdraw debita o excedente não reservado; falha se o valor passar dele.
func (t *Treasury) Withdraw(ctx context.Context, amount int64, ref string) error {
	t.mu.Lock()
	if amount > t.balance-t.reserved {
		t.mu.Unlock()
		return domain.ErrInsufficientSurplus
	}
	t.balance -= amount
	t.mu.Unlock()
	t.record(ctx, MovementWithdraw, amount, ref)
	return nil
}

// Restore repõe o saldo a partir do ledger persistido. Só roda no boot,
// antes de qualquer reserva, e não gera movimento novo.
func (t *Treasury) Restore(balance int64) {
	t.mu.Lock()
	t.balance = balance
	t.mu.Unlock()
}

// Balance é o caixa total; Reserved o comprometido; Surplus o sacável.
func (t *Treasury) Balance() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}

func (t *Treasury) Reserved() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reserved
}

func (t *Treasury) Surplus() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance - t.reserved
}

func (t *Treasury) record(ctx context.Context, typ string, amount int64, ref string) {
	if t.store == nil {
		return
	}
	_ = t.store.SaveMovement(ctx, Movement{Type: typ, AmountCents: amount, Ref: ref, At: time.Now().UTC()})
}
