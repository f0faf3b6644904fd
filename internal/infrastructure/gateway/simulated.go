package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"foodpay/internal/config"
	"foodpay/internal/domain"
)

// Deterministic test hooks: a card number ending in declineSuffix always
// fails with a bank decline, approveSuffix always succeeds, regardless of the
// random source.
const (
	declineSuffix = "0000"
	approveSuffix = "1111"
)

// failure codes the random path draws from
var simulatedDeclines = []string{"05", "51", "54", "61", "91", "96"}

// Simulated models the gateway without any network call: bounded artificial
// latency, suffix hooks, and a high fixed approval rate otherwise. It keeps
// every transaction it has seen so Status and Refund answer consistently.
type Simulated struct {
	cfg config.Gateway

	mu       sync.RWMutex
	rng      *rand.Rand
	txns     map[string]*Result
	sessions map[string]time.Time

	minLatency time.Duration
	maxLatency time.Duration
	sessionTTL time.Duration
}

// NewSimulated builds the simulator. Pass a seeded rng to force deterministic
// branches in tests; nil gets a time-seeded source.
func NewSimulated(cfg config.Gateway, rng *rand.Rand) *Simulated {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return &Simulated{
		cfg:        cfg,
		rng:        rng,
		txns:       make(map[string]*Result),
		sessions:   make(map[string]time.Time),
		minLatency: 150 * time.Millisecond,
		maxLatency: 1200 * time.Millisecond,
		sessionTTL: 15 * time.Minute,
	}
}

// SetLatency overrides the artificial delay bounds. Tests pass zeros.
func (s *Simulated) SetLatency(min, max time.Duration) {
	s.minLatency, s.maxLatency = min, max
}

// SetSessionTTL overrides the hosted-session lifetime.
func (s *Simulated) SetSessionTTL(ttl time.Duration) {
	s.sessionTTL = ttl
}

func (s *Simulated) sleep(ctx context.Context) {
	if s.maxLatency <= 0 {
		return
	}
	d := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		s.mu.Lock()
		d += time.Duration(s.rng.Int64N(int64(span)))
		s.mu.Unlock()
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (s *Simulated) InitSession(ctx context.Context, orderNumber string, amount domain.Amount, network domain.PaymentMode, returnURL string) (*Session, error) {
	if err := checkLimits(s.cfg, amount); err != nil {
		return nil, err
	}
	s.sleep(ctx)

	id := "SIM-" + strings.ToUpper(uuid.NewString()[:12])
	expires := time.Now().Add(s.sessionTTL)
	s.mu.Lock()
	s.sessions[id] = expires
	s.mu.Unlock()
	return &Session{
		ID:         id,
		PaymentURL: "https://simulated.gateway.local/pay/" + id,
		ExpiresAt:  expires,
	}, nil
}

func (s *Simulated) Charge(ctx context.Context, req *ChargeRequest) (*Result, error) {
	if err := checkLimits(s.cfg, req.Amount); err != nil {
		return nil, err
	}
	s.sleep(ctx)

	txn := "SIM-" + strings.ToUpper(uuid.NewString()[:12])

	var code string
	number := strings.ReplaceAll(req.CardNumber, " ", "")
	switch {
	case strings.HasSuffix(number, declineSuffix):
		code = "05"
	case strings.HasSuffix(number, approveSuffix):
		code = ActionApproved
	default:
		s.mu.Lock()
		roll := s.rng.IntN(100)
		pick := s.rng.IntN(len(simulatedDeclines))
		s.mu.Unlock()
		if roll < 92 {
			code = ActionApproved
		} else {
			code = simulatedDeclines[pick]
		}
	}

	res := &Result{
		Approved:      CodeApproved(code),
		TransactionID: txn,
		ActionCode:    code,
		Message:       CodeMessage(code),
	}
	if res.Approved {
		s.mu.Lock()
		res.AuthorizationCode = fmt.Sprintf("%06d", s.rng.IntN(1000000))
		s.mu.Unlock()
		res.RemoteStatus = string(domain.PaymentSuccess)
	} else {
		res.RemoteStatus = string(domain.PaymentFailed)
	}

	s.mu.Lock()
	s.txns[txn] = res
	s.mu.Unlock()
	return res, nil
}

func (s *Simulated) Status(ctx context.Context, transactionID string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res, ok := s.txns[transactionID]; ok {
		out := *res
		return &out, nil
	}
	// hosted sessions with no completed charge: alive means the payer may
	// still come back, past expiry the session is lost
	if expires, ok := s.sessions[transactionID]; ok {
		if time.Now().After(expires) {
			return &Result{
				TransactionID: transactionID,
				RemoteStatus:  string(domain.PaymentFailed),
				Message:       "payment session expired",
			}, nil
		}
		return &Result{TransactionID: transactionID, RemoteStatus: string(domain.PaymentProcessing)}, nil
	}
	return &Result{TransactionID: transactionID, RemoteStatus: "UNKNOWN"}, nil
}

func (s *Simulated) Refund(ctx context.Context, transactionID string, amount domain.Amount, reason string) (*Result, error) {
	if err := checkLimits(s.cfg, amount); err != nil {
		return nil, err
	}
	s.sleep(ctx)

	s.mu.Lock()
	roll := s.rng.IntN(100)
	s.mu.Unlock()
	if roll >= 95 {
		return &Result{
			Approved:      false,
			TransactionID: transactionID,
			ActionCode:    "96",
			Message:       CodeMessage("96"),
		}, nil
	}

	res := &Result{
		Approved:      true,
		TransactionID: transactionID,
		RefundID:      "RF-" + strings.ToUpper(uuid.NewString()[:12]),
		ActionCode:    ActionApproved,
		Message:       CodeMessage(ActionApproved),
		RemoteStatus:  string(domain.PaymentRefunded),
	}
	s.mu.Lock()
	if prev, ok := s.txns[transactionID]; ok {
		prev.RemoteStatus = string(domain.PaymentRefunded)
	}
	s.mu.Unlock()
	return res, nil
}
